package agent

import (
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// Session is the per-conversation state. The orchestrator holds its lock
// for the whole of a turn, so turns on one session never overlap.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	history   []ports.PromptMessage
	fields    RequiredFields
	workspace *Workspace
}

func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now()}
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	History   []ports.PromptMessage
	Fields    RequiredFields
	Workspace *Workspace
}

// Snapshot blocks while a turn is in progress.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		History:   append([]ports.PromptMessage(nil), s.history...),
		Fields:    s.fields,
		Workspace: s.workspace.Clone(),
	}
}

func (s *Session) appendTurn(role, content string) {
	s.history = append(s.history, ports.PromptMessage{Role: role, Content: content})
}

// recent returns up to n trailing turns; n <= 0 means all.
func (s *Session) recent(n int) []ports.PromptMessage {
	if n <= 0 || n >= len(s.history) {
		return s.history
	}
	return s.history[len(s.history)-n:]
}
