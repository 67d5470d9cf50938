package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newGeminiTestServer(t *testing.T, status int, body string, inspect func(r *http.Request, payload map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		if inspect != nil {
			inspect(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(ProviderConfig{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewGeminiProvider_Defaults(t *testing.T) {
	p, err := NewGeminiProvider(ProviderConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}
	if p.Model() != "gemini-2.5-pro" {
		t.Errorf("Model() = %q, want gemini-2.5-pro", p.Model())
	}
	if p.Name() != "gemini" {
		t.Errorf("Name() = %q, want gemini", p.Name())
	}
	if !strings.HasPrefix(p.endpoint(), "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:generateContent?key=k") {
		t.Errorf("endpoint() = %q", p.endpoint())
	}
}

func TestGeminiProvider_Execute(t *testing.T) {
	body := `{
		"candidates": [{"content": {"parts": [{"text": "Hello &amp; welcome"}], "role": "model"}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 7},
		"modelVersion": "gemini-2.5-pro-002"
	}`

	var gotPath, gotKey string
	var gotPayload map[string]any
	srv := newGeminiTestServer(t, http.StatusOK, body, func(r *http.Request, payload map[string]any) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotPayload = payload
	})

	p, err := NewGeminiProvider(ProviderConfig{APIKey: "secret", BaseURL: srv.URL + "/", Model: "gemini-2.5-pro"})
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}

	resp, err := p.Execute(context.Background(), UserPrompt("hi there"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotPath != "/v1beta/models/gemini-2.5-pro:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q, want secret", gotKey)
	}

	contents, _ := gotPayload["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected 1 content entry, got %v", gotPayload["contents"])
	}
	first, _ := contents[0].(map[string]any)
	parts, _ := first["parts"].([]any)
	part, _ := parts[0].(map[string]any)
	if part["text"] != "hi there" {
		t.Errorf("prompt text = %v", part["text"])
	}
	if _, ok := gotPayload["generationConfig"]; ok {
		t.Error("generationConfig should be omitted when unset")
	}

	if resp.Content != "Hello &amp; welcome" {
		t.Errorf("Content = %q (provider must not sanitize)", resp.Content)
	}
	if resp.FinishReason != "STOP" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage.InputTokens != 4 || resp.Usage.OutputTokens != 7 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.Model != "gemini-2.5-pro-002" {
		t.Errorf("Model = %q", resp.Model)
	}
}

func TestGeminiProvider_Execute_SystemAndConfig(t *testing.T) {
	var gotPayload map[string]any
	srv := newGeminiTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`,
		func(_ *http.Request, payload map[string]any) { gotPayload = payload })

	p, _ := NewGeminiProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Execute(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "q1"},
			{Role: RoleAssistant, Content: "a1"},
			{Role: RoleUser, Content: "q2"},
		},
		MaxTokens:   128,
		Temperature: 0.5,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, ok := gotPayload["systemInstruction"]; !ok {
		t.Error("expected systemInstruction")
	}
	contents, _ := gotPayload["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(contents))
	}
	second, _ := contents[1].(map[string]any)
	if second["role"] != "model" {
		t.Errorf("assistant turn role = %v, want model", second["role"])
	}
	gc, _ := gotPayload["generationConfig"].(map[string]any)
	if gc["maxOutputTokens"] != float64(128) || gc["temperature"] != 0.5 {
		t.Errorf("generationConfig = %v", gc)
	}
}

func TestGeminiProvider_Execute_NoResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty_candidates", `{"candidates": []}`},
		{"missing_candidates", `{}`},
		{"no_content", `{"candidates": [{"finishReason": "SAFETY"}]}`},
		{"no_parts", `{"candidates": [{"content": {"parts": []}}]}`},
		{"no_text", `{"candidates": [{"content": {"parts": [{}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiTestServer(t, http.StatusOK, tt.body, nil)
			p, _ := NewGeminiProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})

			_, err := p.Execute(context.Background(), UserPrompt("x"))
			if !errors.Is(err, ErrNoResponse) {
				t.Errorf("expected ErrNoResponse, got %v", err)
			}
		})
	}
}

func TestGeminiProvider_Execute_APIError(t *testing.T) {
	srv := newGeminiTestServer(t, http.StatusForbidden,
		`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`, nil)
	p, _ := NewGeminiProvider(ProviderConfig{APIKey: "bad", BaseURL: srv.URL})

	_, err := p.Execute(context.Background(), UserPrompt("x"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "API key not valid" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Retryable() {
		t.Error("403 should not be retryable")
	}
}

func TestGeminiProvider_Execute_BadJSON(t *testing.T) {
	srv := newGeminiTestServer(t, http.StatusOK, `not json`, nil)
	p, _ := NewGeminiProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL})

	_, err := p.Execute(context.Background(), UserPrompt("x"))
	if err == nil || errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestGeminiProvider_Execute_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p, _ := NewGeminiProvider(ProviderConfig{APIKey: "topsecret", BaseURL: srv.URL})
	_, err := p.Execute(context.Background(), UserPrompt("x"))
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Errorf("error leaks API key: %v", err)
	}
}
