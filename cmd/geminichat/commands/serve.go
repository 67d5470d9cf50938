package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/geminichat/internal/logger"
	"github.com/jmylchreest/geminichat/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page",
	Long: `Serve the single-page chat UI and its JSON API.

Routes:
  GET  /             chat page
  POST /             submit the prompt form
  POST /api/chat     {"prompt": "..."} -> {"response", "model", "cached"}
  GET  /api/prompts  quick prompt suggestions
  GET  /healthz      liveness

Examples:
  geminichat serve
  geminichat serve --addr :9000 --rate-limit 5 --cache-ttl 10m`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	addProviderFlags(flags)

	flags.String("addr", "", "listen address (default localhost:8080)")
	flags.Float64("rate-limit", 0, "requests per second across all clients (default 1, 0 in config = unlimited)")
	flags.Int("rate-burst", 0, "rate limiter burst (default 3)")
	flags.String("max-prompt-size", "", "max request body size, e.g. 16KB, 1MiB (default 16KB)")
	flags.StringSlice("allowed-origins", nil, "CORS origins (default any)")
	flags.Duration("cache-ttl", 0, "cache identical prompts for this long (0 = off)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	session, err := newSession(cfg)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		return err
	}

	maxBody := cfg.MaxPromptBytes()
	logger.Info("starting server",
		"addr", cfg.Server.Addr,
		"rate_limit", cfg.Server.RateLimit,
		"rate_burst", cfg.Server.RateBurst,
		"max_prompt_size", humanize.Bytes(uint64(maxBody)),
		"cache_ttl", cfg.CacheTTL,
	)

	srv := web.New(session, web.Options{
		Addr:           cfg.Server.Addr,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		MaxBodyBytes:   maxBody,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
