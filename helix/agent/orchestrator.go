package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/helix/helix/generation/harness"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// Sender names written to the durable log.
const (
	SenderUser  = "User"
	SenderHelix = "Helix"
)

// Options configures an Orchestrator. Nil collaborators are replaced by
// no-ops.
type Options struct {
	Publisher     ports.Publisher
	Log           ports.DurableLog
	Extraction    harness.Preset
	Generation    harness.Preset
	HistoryWindow int // turns embedded in the extraction instruction
	Logger        zerolog.Logger
}

// Orchestrator runs turns against sessions. It holds no conversation state
// of its own and is safe to share between sessions.
type Orchestrator struct {
	enforcer      *harness.Enforcer
	publisher     ports.Publisher
	log           ports.DurableLog
	extraction    harness.Preset
	generation    harness.Preset
	historyWindow int
	logger        zerolog.Logger
}

func New(enforcer *harness.Enforcer, opts Options) (*Orchestrator, error) {
	if enforcer == nil {
		return nil, fmt.Errorf("agent: enforcer is required")
	}
	if err := enforcer.Register(workspaceContract{}, fieldsContract{}); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	if opts.Publisher == nil {
		opts.Publisher = discard{}
	}
	if opts.Log == nil {
		opts.Log = discard{}
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 5
	}
	if opts.Extraction.Name == "" {
		opts.Extraction = harness.Preset{Name: "extraction", MaxNewTokens: 500, Temperature: 0.3}
	}
	if opts.Generation.Name == "" {
		opts.Generation = harness.Preset{Name: "generation", MaxNewTokens: 5000, Temperature: 0.7}
	}

	return &Orchestrator{
		enforcer:      enforcer,
		publisher:     opts.Publisher,
		log:           opts.Log,
		extraction:    opts.Extraction,
		generation:    opts.Generation,
		historyWindow: opts.HistoryWindow,
		logger:        opts.Logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// ProcessTurn classifies utterance and runs it against the session. It
// never fails: every problem is folded into the returned result.
func (o *Orchestrator) ProcessTurn(ctx context.Context, s *Session, utterance string) (result TurnResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("session_id", s.ID).Interface("panic", r).Msg("turn panicked")
			result = finalResult(sentinelWorkspace())
		}
	}()

	s.appendTurn("user", utterance)
	o.recordMessage(ctx, s.ID, SenderUser, utterance)

	intent := Classify(utterance, s.workspace != nil)
	o.logger.Debug().Str("session_id", s.ID).Stringer("intent", intent).Msg("classified turn")

	switch intent {
	case IntentAppend:
		result = finalResult(o.appendStep(ctx, s, utterance))
	case IntentEdit:
		result = finalResult(o.editStep(ctx, s, utterance))
	default:
		if slot := o.gather(ctx, s); slot != "" {
			result = questionResult(questionFor(slot))
		} else {
			o.publish(ctx, s.ID, ports.EventAIResponse, msgGenerating)
			result = finalResult(o.generate(ctx, s))
		}
	}

	reply, err := json.Marshal(result)
	if err != nil {
		o.logger.Error().Err(err).Str("session_id", s.ID).Msg("failed to encode turn result")
		return result
	}
	s.appendTurn("assistant", string(reply))
	o.recordMessage(ctx, s.ID, SenderHelix, string(reply))
	return result
}

// gather backfills empty slots from the conversation and returns the first
// slot still missing, or "" when generation can start.
func (o *Orchestrator) gather(ctx context.Context, s *Session) string {
	if s.fields.Complete() {
		return ""
	}

	raw, err := o.enforcer.Invoke(ctx, harness.Call{
		SessionID:   s.ID,
		Instruction: extractionInstruction(s.fields, s.recent(o.historyWindow)),
		History:     s.history,
		Preset:      o.extraction,
	}, fieldsContract{})
	if err != nil {
		o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("field extraction failed, keeping known fields")
	} else {
		o.backfill(s, raw)
	}

	if missing := s.fields.Missing(); len(missing) > 0 {
		return missing[0]
	}
	return ""
}

func (o *Orchestrator) backfill(s *Session, raw json.RawMessage) {
	obj, err := harness.ParseObject(string(raw))
	if err != nil {
		o.logger.Warn().Err(err).Str("session_id", s.ID).Msg("field extraction output unreadable")
		return
	}
	for _, slot := range Slots {
		if s.fields.Fill(slot, extractedValue(obj[slot])) {
			o.logger.Debug().Str("session_id", s.ID).Str("slot", slot).Msg("slot filled")
		}
	}
}

// generate replaces the workspace wholesale.
func (o *Orchestrator) generate(ctx context.Context, s *Session) *Workspace {
	ws, err := o.invokeWorkspace(ctx, s, generateInstruction(s.fields))
	if err != nil {
		return sentinelWorkspace()
	}

	s.workspace = ws
	o.workspaceChanged(ctx, s)
	return s.workspace.Clone()
}

// appendStep trusts the backend to return the whole list with the new step
// added, replacing tasks and final_sequence.
func (o *Orchestrator) appendStep(ctx context.Context, s *Session, request string) *Workspace {
	if s.workspace == nil {
		return &Workspace{Tasks: []Step{}, FinalSequence: msgNoSequenceToAppend}
	}

	ws, err := o.invokeWorkspace(ctx, s, appendInstruction(s.workspace, request))
	if err != nil {
		return &Workspace{Tasks: cloneSteps(s.workspace.Tasks), FinalSequence: SentinelMessage}
	}

	s.workspace.Tasks = ws.Tasks
	s.workspace.FinalSequence = ws.FinalSequence
	o.workspaceChanged(ctx, s)
	return s.workspace.Clone()
}

// editStep only takes the echoed step with id 1 (stored at index 0) and the
// summary from the backend. Every other stored step is left as it was.
func (o *Orchestrator) editStep(ctx context.Context, s *Session, request string) *Workspace {
	if s.workspace == nil {
		return &Workspace{Tasks: []Step{}, FinalSequence: msgNoSequenceToModify}
	}

	ws, err := o.invokeWorkspace(ctx, s, editInstruction(s.workspace, request))
	if err != nil {
		return &Workspace{Tasks: cloneSteps(s.workspace.Tasks), FinalSequence: SentinelMessage}
	}

	for _, step := range ws.Tasks {
		if step.ID != 1 {
			continue
		}
		if len(s.workspace.Tasks) == 0 {
			s.workspace.Tasks = append(s.workspace.Tasks, step)
		} else {
			s.workspace.Tasks[0] = step
		}
	}
	s.workspace.FinalSequence = ws.FinalSequence
	o.workspaceChanged(ctx, s)
	return s.workspace.Clone()
}

func (o *Orchestrator) invokeWorkspace(ctx context.Context, s *Session, instruction string) (*Workspace, error) {
	raw, err := o.enforcer.Invoke(ctx, harness.Call{
		SessionID:   s.ID,
		Instruction: instruction,
		History:     s.history,
		Preset:      o.generation,
	}, workspaceContract{})
	if err != nil {
		return nil, err
	}

	ws, err := decodeWorkspace(raw)
	if err != nil {
		o.logger.Error().Err(err).Str("session_id", s.ID).RawJSON("output", raw).Msg("validated workspace did not decode")
		return nil, err
	}
	return ws, nil
}

func (o *Orchestrator) workspaceChanged(ctx context.Context, s *Session) {
	o.publish(ctx, s.ID, ports.EventUpdateWorkspace, s.workspace.Clone())
	for _, step := range s.workspace.Tasks {
		if err := o.log.RecordTask(ctx, ports.TaskRecord{
			SessionID:   s.ID,
			TaskID:      step.ID,
			Description: step.Description,
			Status:      "pending",
		}); err != nil {
			o.logger.Warn().Err(err).Str("session_id", s.ID).Int("task_id", step.ID).Msg("failed to record task")
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, sessionID, name string, payload any) {
	if err := o.publisher.Publish(ctx, ports.Event{SessionID: sessionID, Name: name, Payload: payload}); err != nil {
		o.logger.Warn().Err(err).Str("session_id", sessionID).Str("event", name).Msg("notification failed")
	}
}

func (o *Orchestrator) recordMessage(ctx context.Context, sessionID, sender, content string) {
	if err := o.log.RecordMessage(ctx, ports.MessageRecord{SessionID: sessionID, Sender: sender, Content: content}); err != nil {
		o.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record message")
	}
}

type discard struct{}

func (discard) Publish(context.Context, ports.Event) error                { return nil }
func (discard) RecordMessage(context.Context, ports.MessageRecord) error { return nil }
func (discard) RecordTask(context.Context, ports.TaskRecord) error       { return nil }
