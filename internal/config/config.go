// Package config loads and validates geminichat settings from flags, the
// environment, an optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/geminichat/internal/version"
	"github.com/jmylchreest/geminichat/pkg/llm"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "GEMINICHAT"

// Config holds all application configuration.
type Config struct {
	Provider    string        `mapstructure:"provider" validate:"required,provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`

	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the web UI.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required,hostname_port"`
	RateLimit      float64  `mapstructure:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	RateBurst      int      `mapstructure:"rate_burst" validate:"gte=0"`
	MaxPromptSize  string   `mapstructure:"max_prompt_size" validate:"required,bytesize"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	Quiet bool `mapstructure:"quiet"`
	JSON  bool `mapstructure:"json"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("timeout", 120*time.Second)
	v.SetDefault("max_retries", 0)
	v.SetDefault("retry_delay", time.Second)
	v.SetDefault("cache_ttl", time.Duration(0))
	v.SetDefault("env_file", ".env")

	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.rate_burst", 3)
	v.SetDefault("server.max_prompt_size", "16KB")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.debug", false)
	v.SetDefault("log.quiet", false)
	v.SetDefault("log.json", false)
}

// Load builds a Config from v. It loads the .env file named by env_file
// (missing files are ignored), reads the config file if one is set or found,
// applies GEMINICHAT_* environment overrides, resolves provider and API key,
// and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if err := loadDotEnv(v.GetString("env_file")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".geminichat")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.resolveProvider()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// resolveProvider fills the provider from the available keys when unset and
// the API key from the provider's conventional variables.
func (c *Config) resolveProvider() {
	if c.Provider == "" {
		provider, key := llm.DetectProvider()
		c.Provider = provider
		if c.APIKey == "" {
			c.APIKey = key
		}
	}
	if c.APIKey == "" {
		c.APIKey = llm.APIKeyFromEnv(c.Provider)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		return llm.IsRegistered(fl.Field().String())
	})
	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		_, err := humanize.ParseBytes(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "provider":
		return fmt.Sprintf("%s: unknown provider %q (available: %s)", field, fe.Value(), strings.Join(llm.AvailableProviders(), ", "))
	case "bytesize":
		return fmt.Sprintf("%s: %q is not a size like 16KB", field, fe.Value())
	case "required":
		return field + ": required"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// MaxPromptBytes returns the parsed request body cap.
func (c *Config) MaxPromptBytes() int64 {
	n, err := humanize.ParseBytes(c.Server.MaxPromptSize)
	if err != nil {
		return 0
	}
	return int64(n)
}

// ResolvedModel returns the configured model or the provider default.
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return llm.GetDefaultModel(c.Provider)
}

// ProviderConfig converts the settings for llm.NewProvider.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.ResolvedModel(),
		MaxRetries: c.MaxRetries,
		RetryDelay: c.RetryDelay,
		Timeout:    c.Timeout,
		UserAgent:  version.UserAgent(),
	}
}
