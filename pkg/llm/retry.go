package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// RetryConfig configures retry behavior for provider calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Caps exponential backoff
	Timeout    time.Duration // Per-attempt timeout (0 = none beyond the caller's)
}

// RetryProvider wraps a Provider with per-attempt timeouts and retries.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// NewRetryProvider wraps an existing provider with retry logic.
func NewRetryProvider(inner Provider, config RetryConfig) *RetryProvider {
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	return &RetryProvider{inner: inner, config: config}
}

// WrapWithRetry wraps provider using the retry settings from cfg.
// Without retries or a timeout configured the provider is returned as is.
func WrapWithRetry(provider Provider, cfg ProviderConfig) Provider {
	if provider == nil || (cfg.MaxRetries <= 0 && cfg.Timeout <= 0) {
		return provider
	}
	return NewRetryProvider(provider, RetryConfig{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
	})
}

// Name returns the underlying provider name.
func (r *RetryProvider) Name() string { return r.inner.Name() }

// Model returns the underlying provider model.
func (r *RetryProvider) Model() string { return r.inner.Model() }

// Execute runs the request, retrying retryable failures with exponential backoff.
func (r *RetryProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		}
		resp, err := r.inner.Execute(attemptCtx, req)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if r.config.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.config.MaxRetries, lastErr)
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxDelay.
func (r *RetryProvider) backoff(attempt int) time.Duration {
	delay := r.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.config.MaxDelay {
			return r.config.MaxDelay
		}
	}
	return delay
}

// IsRetryable reports whether a provider error is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNoResponse) || errors.Is(err, ErrMissingAPIKey) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
