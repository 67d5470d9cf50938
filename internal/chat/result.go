package chat

import "time"

// Result records one prompt/response exchange.
type Result struct {
	Prompt       string `json:"prompt" yaml:"prompt"`
	Response     string `json:"response" yaml:"response"`
	Raw          string `json:"raw,omitempty" yaml:"raw,omitempty"`
	Provider     string `json:"provider" yaml:"provider"`
	Model        string `json:"model" yaml:"model"`
	FinishReason string `json:"finish_reason,omitempty" yaml:"finish_reason,omitempty"`
	InputTokens  int    `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int    `json:"output_tokens" yaml:"output_tokens"`
	DurationMS   int64  `json:"duration_ms" yaml:"duration_ms"`
	Cached       bool   `json:"cached" yaml:"cached"`
	Failed       bool   `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Text returns the displayable response, used by the text output writer.
func (r *Result) Text() string {
	return r.Response
}

// Duration returns the provider latency.
func (r *Result) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}
