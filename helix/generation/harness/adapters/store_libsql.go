package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// LibSQLLog implements DurableLog on the messages and tasks tables.
type LibSQLLog struct {
	db *sql.DB
}

// NewLibSQLLog creates a durable log over an already migrated database.
func NewLibSQLLog(db *sql.DB) *LibSQLLog {
	return &LibSQLLog{db: db}
}

// RecordMessage inserts one chat line.
func (s *LibSQLLog) RecordMessage(ctx context.Context, rec ports.MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO messages (session_id, sender, content, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, rec.SessionID, rec.Sender, rec.Content, rec.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecordTask inserts one task row. Each call appends; task ids are not unique.
func (s *LibSQLLog) RecordTask(ctx context.Context, rec ports.TaskRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = "pending"
	}

	var result sql.NullString
	if rec.Result != "" {
		result = sql.NullString{String: rec.Result, Valid: true}
	}

	query := `
		INSERT INTO tasks (session_id, task_id, description, execution_status, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, rec.SessionID, rec.TaskID, rec.Description, rec.Status, result, rec.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Messages returns the chat lines of a session, oldest first.
func (s *LibSQLLog) Messages(ctx context.Context, sessionID string) ([]ports.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sender, content, created_at FROM messages
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []ports.MessageRecord
	for rows.Next() {
		var (
			rec       ports.MessageRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Sender, &rec.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, nil
}

// Tasks returns the task rows of a session, oldest first.
func (s *LibSQLLog) Tasks(ctx context.Context, sessionID string) ([]ports.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, task_id, description, execution_status, result, created_at FROM tasks
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var out []ports.TaskRecord
	for rows.Next() {
		var (
			rec       ports.TaskRecord
			result    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.TaskID, &rec.Description, &rec.Status, &result, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		rec.Result = result.String
		rec.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return out, nil
}

// Ensure LibSQLLog implements the DurableLog interface.
var _ ports.DurableLog = (*LibSQLLog)(nil)
