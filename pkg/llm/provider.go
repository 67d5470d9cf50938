// Package llm provides a unified interface for generative language providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the model.
type Request struct {
	Messages    []Message
	MaxTokens   int     // 0 lets the provider decide
	Temperature float64 // 0 lets the provider decide
}

// UserPrompt builds a single-turn request for prompt.
func UserPrompt(prompt string) Request {
	return Request{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of a completion.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string // Model reported by the provider, may differ from the requested one
	Duration     time.Duration
}

// Provider is the interface that all backends implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	// It returns ErrNoResponse when the reply carries no text.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

var (
	// ErrNoResponse is returned when a reply is well formed but holds no text,
	// e.g. an empty candidates list.
	ErrNoResponse = errors.New("no response from model")

	// ErrMissingAPIKey is returned by providers that need a key when none is configured.
	ErrMissingAPIKey = errors.New("API key required")
)

// APIError is a non-success HTTP reply from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // For custom or self-hosted endpoints
	Model      string
	MaxRetries int           // 0 disables retries
	RetryDelay time.Duration // Initial backoff between retries
	Timeout    time.Duration
	UserAgent  string // Sent on outbound requests when set
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 0,
		RetryDelay: time.Second,
		Timeout:    120 * time.Second,
	}
}
