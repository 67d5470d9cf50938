package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type sequenceProvider struct {
	errs  []error
	calls int
}

func (s *sequenceProvider) Execute(context.Context, Request) (*Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &Response{Content: "ok"}, nil
}
func (s *sequenceProvider) Name() string  { return "seq" }
func (s *sequenceProvider) Model() string { return "seq-model" }

func TestRetryProvider_RetriesTransientErrors(t *testing.T) {
	inner := &sequenceProvider{errs: []error{
		&APIError{Provider: "seq", StatusCode: 503},
		&APIError{Provider: "seq", StatusCode: 429},
	}}
	p := NewRetryProvider(inner, RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	resp, err := p.Execute(context.Background(), UserPrompt("x"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Content != "ok" || inner.calls != 3 {
		t.Errorf("calls = %d, resp = %+v", inner.calls, resp)
	}
}

func TestRetryProvider_StopsOnPermanentError(t *testing.T) {
	inner := &sequenceProvider{errs: []error{&APIError{Provider: "seq", StatusCode: 400}}}
	p := NewRetryProvider(inner, RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, err := p.Execute(context.Background(), UserPrompt("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryProvider_NoRetryByDefault(t *testing.T) {
	inner := &sequenceProvider{errs: []error{&APIError{Provider: "seq", StatusCode: 500}}}
	p := NewRetryProvider(inner, RetryConfig{})

	_, err := p.Execute(context.Background(), UserPrompt("x"))
	if err == nil || inner.calls != 1 {
		t.Fatalf("calls = %d, err = %v", inner.calls, err)
	}
}

func TestRetryProvider_ExhaustsRetries(t *testing.T) {
	fail := &APIError{Provider: "seq", StatusCode: 502}
	inner := &sequenceProvider{errs: []error{fail, fail, fail}}
	p := NewRetryProvider(inner, RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, err := p.Execute(context.Background(), UserPrompt("x"))
	if !errors.Is(err, fail) {
		t.Fatalf("expected wrapped last error, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryProvider_Backoff(t *testing.T) {
	p := NewRetryProvider(&sequenceProvider{}, RetryConfig{RetryDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond})

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"no_response", ErrNoResponse, false},
		{"missing_key", ErrMissingAPIKey, false},
		{"rate_limited", &APIError{StatusCode: 429}, true},
		{"server_error", &APIError{StatusCode: 500}, true},
		{"bad_request", &APIError{StatusCode: 400}, false},
		{"unknown", errors.New("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapWithRetry_PassThrough(t *testing.T) {
	inner := &sequenceProvider{}
	if got := WrapWithRetry(inner, ProviderConfig{}); got != Provider(inner) {
		t.Errorf("WrapWithRetry without settings should return the provider unchanged")
	}
	if _, ok := WrapWithRetry(inner, ProviderConfig{MaxRetries: 1}).(*RetryProvider); !ok {
		t.Errorf("WrapWithRetry with retries should return *RetryProvider")
	}
}
