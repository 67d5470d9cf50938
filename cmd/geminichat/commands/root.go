// Package commands implements the CLI commands for geminichat.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/geminichat/internal/chat"
	"github.com/jmylchreest/geminichat/internal/config"
	"github.com/jmylchreest/geminichat/internal/logger"
	"github.com/jmylchreest/geminichat/pkg/cleaner"
	"github.com/jmylchreest/geminichat/pkg/llm"
)

var rootCmd = &cobra.Command{
	Use:   "geminichat",
	Short: "Chat with a generative language model from the terminal or the browser",
	Long: `geminichat sends prompts to Google Gemini (or another configured provider)
and shows the cleaned-up response. Responses are entity-decoded, code fences
are turned into labelled plain-text blocks, and the result is HTML-escaped so
it can be displayed verbatim.

Examples:
  # One-shot question
  geminichat ask "Briefly summarize this concept: urban planning"

  # Prompt from stdin, JSON output
  echo "Improve the readability of the following code" | geminichat ask --format json

  # Serve the web page on localhost:8080
  geminichat serve

  # Clean an arbitrary model reply
  geminichat sanitize < reply.txt`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.geminichat.yaml)")
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"provider":        "provider",
	"model":           "model",
	"api-key":         "api_key",
	"base-url":        "base_url",
	"temperature":     "temperature",
	"max-tokens":      "max_tokens",
	"timeout":         "timeout",
	"max-retries":     "max_retries",
	"retry-delay":     "retry_delay",
	"cache-ttl":       "cache_ttl",
	"addr":            "server.addr",
	"rate-limit":      "server.rate_limit",
	"rate-burst":      "server.rate_burst",
	"max-prompt-size": "server.max_prompt_size",
	"allowed-origins": "server.allowed_origins",
	"env-file":        "env_file",
	"debug":           "log.debug",
	"quiet":           "log.quiet",
	"log-json":        "log.json",
}

// bindFlags binds the flags of the running command. Binding happens at run
// time because several commands share flag names.
func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = viper.BindPFlag(key, f)
	})
	return err
}

// setup binds flags, loads configuration and initialises logging.
func setup(cmd *cobra.Command) (*config.Config, error) {
	if err := bindFlags(cmd); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		initLogger(nil)
		logger.Error("failed to load config", "error", err)
		return nil, err
	}
	initLogger(cfg)

	logger.Debug("config loaded",
		"file", viper.ConfigFileUsed(),
		"provider", cfg.Provider,
		"model", cfg.ResolvedModel(),
		"api_key_set", cfg.APIKey != "",
	)
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	if cfg == nil {
		logger.Init(logger.Options{
			Debug: viper.GetBool("log.debug"),
			Quiet: viper.GetBool("log.quiet"),
			JSON:  viper.GetBool("log.json"),
		})
		return
	}
	logger.Init(logger.Options{
		Debug: cfg.Log.Debug,
		Quiet: cfg.Log.Quiet,
		JSON:  cfg.Log.JSON,
	})
}

// addProviderFlags registers the flags shared by commands that call a model.
func addProviderFlags(flags *pflag.FlagSet) {
	flags.StringP("provider", "p", "", "provider: gemini, anthropic, openai, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use GEMINI_API_KEY / GOOGLE_API_KEY)")
	flags.String("base-url", "", "custom API base URL")
	flags.Float64("temperature", 0, "sampling temperature, 0-2 (0 = provider default)")
	flags.Int("max-tokens", 0, "max output tokens (0 = provider default)")
	flags.Duration("timeout", 0, "per-request timeout (default 2m)")
	flags.Int("max-retries", 0, "retries for timeouts, 429 and 5xx responses")
	flags.Duration("retry-delay", 0, "initial retry backoff (default 1s)")
}

// newSession builds the provider stack and a chat session for cfg.
func newSession(cfg *config.Config, opts ...chat.Option) (*chat.Session, error) {
	pc := cfg.ProviderConfig()

	provider, err := llm.NewProvider(cfg.Provider, pc)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}
	provider = llm.WrapWithRetry(provider, pc)
	provider = llm.WithObserver(provider, logObserver())

	logger.Debug("provider ready", "provider", provider.Name(), "model", provider.Model())

	base := []chat.Option{
		chat.WithCache(cfg.CacheTTL),
		chat.WithGeneration(cfg.Temperature, cfg.MaxTokens),
	}
	return chat.NewSession(provider, append(base, opts...)...), nil
}

// rawCleaner bypasses sanitization.
func rawCleaner(raw bool) chat.Option {
	if !raw {
		return func(*chat.Session) {}
	}
	return chat.WithCleaner(cleaner.NewNoop())
}

// logObserver writes one structured entry per provider call.
func logObserver() llm.Observer {
	return llm.ObserverFunc(func(ctx context.Context, e llm.CallEvent) {
		if e.Error != nil {
			logger.WarnContext(ctx, "llm call failed",
				"provider", e.Provider,
				"model", e.Model,
				"duration", e.Duration.Round(time.Millisecond),
				"error", e.Error,
			)
			return
		}
		if e.Response == nil {
			return
		}
		logger.DebugContext(ctx, "llm call",
			"provider", e.Provider,
			"model", e.Model,
			"duration", e.Duration.Round(time.Millisecond),
			"input_tokens", e.Response.Usage.InputTokens,
			"output_tokens", e.Response.Usage.OutputTokens,
			"finish_reason", e.Response.FinishReason,
		)
	})
}
