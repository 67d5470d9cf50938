package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// isolate clears provider keys and points HOME at an empty directory so no
// user config file is picked up.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"GEMINICHAT_API_KEY", "GEMINICHAT_PROVIDER", "GEMINICHAT_MODEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		t.Cleanup(func() {
			if ok {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama when no key is set", cfg.Provider)
	}
	if cfg.Server.Addr != "localhost:8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if got := cfg.MaxPromptBytes(); got != 16000 {
		t.Errorf("MaxPromptBytes() = %d, want 16000", got)
	}
	if cfg.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0", cfg.CacheTTL)
	}
}

func TestLoad_DetectsGeminiKey(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.Provider)
	}
	if cfg.APIKey != "google-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.ResolvedModel() != "gemini-2.5-pro" {
		t.Errorf("ResolvedModel() = %q", cfg.ResolvedModel())
	}
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "gemini-key" {
		t.Errorf("APIKey = %q, want GEMINI_API_KEY to win over GOOGLE_API_KEY", cfg.APIKey)
	}

	t.Setenv("GEMINICHAT_API_KEY", "app-key")
	cfg, err = Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "app-key" {
		t.Errorf("APIKey = %q, want GEMINICHAT_API_KEY to win", cfg.APIKey)
	}
}

func TestLoad_ExplicitProviderUsesItsKey(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("GEMINICHAT_PROVIDER", "anthropic")

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.APIKey != "anthropic-key" {
		t.Errorf("got provider=%q key=%q", cfg.Provider, cfg.APIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "geminichat.yaml", `
provider: gemini
model: gemini-2.5-flash
temperature: 0.7
timeout: 30s
cache_ttl: 5m
server:
  addr: "127.0.0.1:9000"
  rate_limit: 2.5
  max_prompt_size: 1MiB
  allowed_origins:
    - https://example.com
log:
  debug: true
`)

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "gemini-2.5-flash" || cfg.ResolvedModel() != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.Timeout != 30*time.Second || cfg.CacheTTL != 5*time.Minute {
		t.Errorf("Timeout = %v, CacheTTL = %v", cfg.Timeout, cfg.CacheTTL)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.RateLimit != 2.5 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.MaxPromptBytes() != 1<<20 {
		t.Errorf("MaxPromptBytes() = %d", cfg.MaxPromptBytes())
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Log.Debug {
		t.Error("Log.Debug = false")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "geminichat.yaml", "provider: gemini\nmodel: from-file\n")
	t.Setenv("GEMINICHAT_MODEL", "from-env")

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, want from-env", cfg.Model)
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	isolate(t)

	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(v); err == nil {
		t.Fatal("Load() expected error for missing explicit config file")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	unsetEnv(t, "GEMINICHAT_MODEL", "GEMINI_API_KEY")
	path := writeFile(t, ".env", "GEMINI_API_KEY=dotenv-key\nGEMINICHAT_MODEL=gemini-2.5-flash\n")

	v := viper.New()
	v.Set("env_file", path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "gemini" || cfg.APIKey != "dotenv-key" {
		t.Errorf("got provider=%q key=%q", cfg.Provider, cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	isolate(t)

	v := viper.New()
	v.Set("env_file", filepath.Join(t.TempDir(), "missing.env"))
	if _, err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	isolate(t)

	v := viper.New()
	v.Set("provider", "nope")
	v.Set("temperature", 3.5)
	v.Set("max_tokens", -1)
	v.Set("server.max_prompt_size", "lots")

	_, err := Load(v)
	if err == nil {
		t.Fatal("Load() expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"Provider", "Temperature", "MaxTokens", "Server.MaxPromptSize", `"nope"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Provider: "gemini",
			Server:   ServerConfig{Addr: ":8080", MaxPromptSize: "16KB"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "port only address", mutate: func(c *Config) { c.Server.Addr = ":0" }, wantErr: "Server.Addr"},
		{name: "missing address", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "Server.Addr: required"},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: "MaxRetries"},
		{name: "negative rate", mutate: func(c *Config) { c.Server.RateLimit = -1 }, wantErr: "Server.RateLimit"},
		{name: "bad base url", mutate: func(c *Config) { c.BaseURL = "not a url" }, wantErr: "BaseURL"},
		{name: "local base url", mutate: func(c *Config) { c.BaseURL = "http://localhost:11434" }},
		{name: "temperature upper bound", mutate: func(c *Config) { c.Temperature = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := Config{
		Provider:   "gemini",
		APIKey:     "k",
		BaseURL:    "http://localhost:1234",
		MaxRetries: 2,
		RetryDelay: time.Second,
		Timeout:    10 * time.Second,
	}

	pc := cfg.ProviderConfig()
	if pc.APIKey != "k" || pc.BaseURL != "http://localhost:1234" {
		t.Errorf("ProviderConfig() = %+v", pc)
	}
	if pc.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want provider default", pc.Model)
	}
	if pc.MaxRetries != 2 || pc.Timeout != 10*time.Second || pc.RetryDelay != time.Second {
		t.Errorf("retry settings not carried: %+v", pc)
	}
	if !strings.HasPrefix(pc.UserAgent, "geminichat/") {
		t.Errorf("UserAgent = %q", pc.UserAgent)
	}
}
