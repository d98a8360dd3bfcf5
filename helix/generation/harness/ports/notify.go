package harnessports

import "context"

// Event names pushed to listeners.
const (
	EventAIResponse      = "ai_response"
	EventWorkspaceUpdate = "workspace_update"
	EventUpdateWorkspace = "update_workspace"
)

// Event is one notification addressed to the listeners of a session.
type Event struct {
	SessionID string `json:"session_id"`
	Name      string `json:"event"`
	Payload   any    `json:"payload"`
}

// Publisher delivers events to an external channel. Delivery is best effort
// and unacknowledged.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
