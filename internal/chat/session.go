// Package chat holds the conversation state behind the web page and the CLI:
// the current prompt, whether a request is in flight, and the last response.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jmylchreest/geminichat/internal/logger"
	"github.com/jmylchreest/geminichat/pkg/cleaner"
	"github.com/jmylchreest/geminichat/pkg/llm"
	"github.com/jmylchreest/geminichat/pkg/sanitize"
)

// Fixed texts shown in place of a response.
const (
	NoResponseText = "No response from the model."
	ErrorText      = "Error fetching response. Check the server log."
)

var (
	// ErrEmptyPrompt is returned when the prompt is blank after trimming.
	ErrEmptyPrompt = errors.New("chat: empty prompt")

	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("chat: request already in progress")
)

// State is a snapshot of the session.
type State struct {
	Prompt   string `json:"prompt"`
	Loading  bool   `json:"loading"`
	Response string `json:"response"`
	Failed   bool   `json:"failed,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithCache enables the response cache with the given TTL. Zero disables it.
func WithCache(ttl time.Duration) Option {
	return func(s *Session) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithCleaner replaces the response cleaner. The default is sanitize.Pipeline().
func WithCleaner(c cleaner.Cleaner) Option {
	return func(s *Session) {
		if c != nil {
			s.cleaner = c
		}
	}
}

// WithGeneration sets the temperature and output token limit sent with every
// request. Zero values leave the choice to the provider.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(s *Session) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// Session serialises requests to a provider and keeps the resulting state.
type Session struct {
	provider    llm.Provider
	cleaner     cleaner.Cleaner
	cache       *cache.Cache
	temperature float64
	maxTokens   int

	mu    sync.Mutex
	state State
}

// NewSession creates a session for provider.
func NewSession(provider llm.Provider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		cleaner:  sanitize.Pipeline(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the backing provider.
func (s *Session) Provider() llm.Provider {
	return s.provider
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPrompt replaces the prompt text without sending it.
func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Prompt = prompt
}

// Send submits prompt and returns the state once the request settles.
func (s *Session) Send(ctx context.Context, prompt string) (State, error) {
	_, state, err := s.exchange(ctx, prompt)
	return state, err
}

// Ask submits prompt like Send and returns the full exchange record. On a
// provider failure the returned Result carries the fallback text alongside the
// error.
func (s *Session) Ask(ctx context.Context, prompt string) (*Result, error) {
	res, _, err := s.exchange(ctx, prompt)
	return res, err
}

func (s *Session) exchange(ctx context.Context, prompt string) (*Result, State, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return nil, s.Snapshot(), ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.state.Loading {
		state := s.state
		s.mu.Unlock()
		return nil, state, ErrBusy
	}
	s.state.Prompt = prompt
	s.state.Loading = true
	s.mu.Unlock()

	res, err := s.complete(ctx, prompt, trimmed)

	s.mu.Lock()
	s.state.Loading = false
	s.state.Response = res.Response
	s.state.Failed = res.Failed
	state := s.state
	s.mu.Unlock()

	return res, state, err
}

func (s *Session) complete(ctx context.Context, prompt, trimmed string) (*Result, error) {
	key := s.provider.Model() + "\x00" + trimmed
	if cached, ok := s.lookup(key); ok {
		logger.DebugContext(ctx, "chat cache hit", "provider", s.provider.Name(), "model", cached.Model)
		cached.Prompt = prompt
		return cached, nil
	}

	res := &Result{
		Prompt:   prompt,
		Provider: s.provider.Name(),
		Model:    s.provider.Model(),
	}

	req := llm.UserPrompt(prompt)
	req.Temperature = s.temperature
	req.MaxTokens = s.maxTokens

	logger.DebugContext(ctx, "chat request", "provider", res.Provider, "model", res.Model, "prompt_chars", len(prompt))

	start := time.Now()
	resp, err := s.provider.Execute(ctx, req)
	res.DurationMS = time.Since(start).Milliseconds()

	switch {
	case errors.Is(err, llm.ErrNoResponse):
		logger.WarnContext(ctx, "model returned no text", "provider", res.Provider, "model", res.Model)
		res.Response = NoResponseText
		return res, nil
	case err != nil:
		return s.fail(ctx, res, fmt.Errorf("requesting completion: %w", err))
	}

	if resp.Model != "" {
		res.Model = resp.Model
	}
	res.Raw = resp.Content
	res.FinishReason = resp.FinishReason
	res.InputTokens = resp.Usage.InputTokens
	res.OutputTokens = resp.Usage.OutputTokens

	clean, err := s.cleaner.Clean(resp.Content)
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("cleaning response: %w", err))
	}
	res.Response = clean

	logger.DebugContext(ctx, "chat response",
		"provider", res.Provider,
		"model", res.Model,
		"output_tokens", res.OutputTokens,
		"duration", res.Duration(),
	)

	s.store(key, res)
	return res, nil
}

func (s *Session) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	logger.ErrorContext(ctx, "chat request failed", "provider", res.Provider, "model", res.Model, "error", err)
	res.Response = ErrorText
	res.Failed = true
	return res, err
}

func (s *Session) lookup(key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	hit := *v.(*Result)
	hit.Cached = true
	return &hit, true
}

func (s *Session) store(key string, res *Result) {
	if s.cache == nil {
		return
	}
	entry := *res
	s.cache.Set(key, &entry, cache.DefaultExpiration)
}
