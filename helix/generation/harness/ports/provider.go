package harnessports

import (
	"context"
)

// PromptMessage represents a single chat message used to build prompts.
type PromptMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// PromptInput aggregates everything the provider needs to produce a completion.
type PromptInput struct {
	System   string            // leading instruction, sent ahead of the history
	Messages []PromptMessage   // ordered chat history
	Meta     map[string]string // lightweight metadata for tracing
}

// Options controls output length and randomness.
type Options struct {
	MaxNewTokens int
	Temperature  float32
	// TimeoutMs applies to the provider call only; zero leaves the call unbounded.
	TimeoutMs int
}

// Usage captures token accounting for telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's free-form response.
type Completion struct {
	Text  string
	Raw   any    // raw provider payload for debugging/telemetry
	Usage *Usage // optional usage information
}

// Provider is the abstraction for all generation backends.
// Implementations may fail on transport or quota errors.
type Provider interface {
	Complete(ctx context.Context, in PromptInput, opts Options) (Completion, error)
}
