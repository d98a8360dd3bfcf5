package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// Step execution statuses.
const (
	StatusQueued = "queued"
	StatusError  = "error"
)

// StepResult reports what happened to an executed step.
type StepResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StepExecutor carries out one outreach step.
type StepExecutor interface {
	Execute(ctx context.Context, sessionID, stepText string) StepResult
}

var stepIDPattern = regexp.MustCompile(`(?i)^\s*step\s+(\d+)`)

// QueueExecutor hands steps off by recording them as queued tasks. Delivery
// of the outreach itself happens outside this process.
type QueueExecutor struct {
	log    ports.DurableLog
	logger zerolog.Logger
}

func NewQueueExecutor(log ports.DurableLog, logger zerolog.Logger) *QueueExecutor {
	if log == nil {
		log = discard{}
	}
	return &QueueExecutor{log: log, logger: logger.With().Str("component", "executor").Logger()}
}

func (e *QueueExecutor) Execute(ctx context.Context, sessionID, stepText string) StepResult {
	stepText = strings.TrimSpace(stepText)
	if stepText == "" {
		return StepResult{Status: StatusError, Message: "No step provided."}
	}

	var taskID int
	if m := stepIDPattern.FindStringSubmatch(stepText); m != nil {
		taskID, _ = strconv.Atoi(m[1])
	}

	if err := e.log.RecordTask(ctx, ports.TaskRecord{
		SessionID:   sessionID,
		TaskID:      taskID,
		Description: stepText,
		Status:      StatusQueued,
	}); err != nil {
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record queued step")
	}

	return StepResult{Status: StatusQueued, Message: fmt.Sprintf("Queued for execution: %s", stepText)}
}

var _ StepExecutor = (*QueueExecutor)(nil)
