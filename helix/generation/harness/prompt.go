package harness

import (
	"strings"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// PromptBuilder assembles model-ready inputs from an instruction and chat history.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Build places the instruction ahead of a normalized copy of the history.
// The caller's slice is left untouched.
func (b *PromptBuilder) Build(system string, messages []ports.PromptMessage, meta map[string]string) ports.PromptInput {
	norm := func(s string) string { return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n")) }

	history := make([]ports.PromptMessage, len(messages))
	for i, m := range messages {
		history[i] = ports.PromptMessage{Role: m.Role, Content: norm(m.Content)}
	}

	return ports.PromptInput{
		System:   norm(system),
		Messages: history,
		Meta:     meta,
	}
}
