package providers

import (
	"strings"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// renderTranscript flattens a chat prompt for completion-only backends.
func renderTranscript(in ports.PromptInput) string {
	var b strings.Builder
	if in.System != "" {
		b.WriteString("### System:\n")
		b.WriteString(in.System)
		b.WriteString("\n\n")
	}
	for _, m := range in.Messages {
		switch m.Role {
		case "assistant":
			b.WriteString("### Assistant:\n")
		case "system":
			b.WriteString("### System:\n")
		default:
			b.WriteString("### User:\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("### Assistant:\n")
	return b.String()
}
