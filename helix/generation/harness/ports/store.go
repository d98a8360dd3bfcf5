package harnessports

import (
	"context"
	"time"
)

// MessageRecord is one raw chat line written to the durable log.
type MessageRecord struct {
	SessionID string
	Sender    string // "User" | "Helix"
	Content   string
	CreatedAt time.Time
}

// TaskRecord is one outreach step written to the durable log.
type TaskRecord struct {
	SessionID   string
	TaskID      int
	Description string
	Status      string // "pending", "queued", ...
	Result      string
	CreatedAt   time.Time
}

// DurableLog persists raw messages and tasks. The orchestration core only
// writes to it; nothing reads it back during a turn.
type DurableLog interface {
	RecordMessage(ctx context.Context, rec MessageRecord) error
	RecordTask(ctx context.Context, rec TaskRecord) error
}
