// Package agent is the conversation and workspace orchestration core: intent
// classification, required-field tracking, outreach sequence generation and
// editing, all behind a contract-enforced generation backend.
package agent

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SentinelMessage is the final_sequence text of every contract failure.
const SentinelMessage = "Error: AI returned malformed JSON. Please retry."

const (
	msgNoSequenceToAppend = "Error: No existing sequence to append a step to."
	msgNoSequenceToModify = "Error: No existing sequence to modify."
	msgGenerating         = "Generating outreach sequence..."
)

// Result types.
const (
	TypeQuestion = "question"
	TypeFinal    = "final"
)

// Message is the outreach message attached to a step.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Step is one outreach step. Ids are kept as the backend returned them and
// are never renumbered.
type Step struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	Message     *Message `json:"message,omitempty"`
}

// Workspace is the outreach sequence surfaced to the user.
type Workspace struct {
	Tasks         []Step `json:"tasks"`
	FinalSequence string `json:"final_sequence"`
}

// MarshalJSON always writes tasks as an array.
func (w Workspace) MarshalJSON() ([]byte, error) {
	type alias Workspace
	a := alias(w)
	if a.Tasks == nil {
		a.Tasks = []Step{}
	}
	return json.Marshal(a)
}

// Clone returns a deep copy.
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return nil
	}
	return &Workspace{Tasks: cloneSteps(w.Tasks), FinalSequence: w.FinalSequence}
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s
		if s.Message != nil {
			m := *s.Message
			out[i].Message = &m
		}
	}
	return out
}

// IsError reports whether the workspace carries an error summary instead of
// a generated sequence.
func (w *Workspace) IsError() bool {
	return w != nil && strings.HasPrefix(w.FinalSequence, "Error:")
}

func sentinelWorkspace() *Workspace {
	return &Workspace{Tasks: []Step{}, FinalSequence: SentinelMessage}
}

// Chat is the conversational part of a turn result.
type Chat struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// TurnResult is the outcome of one processed turn. A nil Workspace is
// written as {} on the wire.
type TurnResult struct {
	Type      string
	Chat      *Chat
	Workspace *Workspace
}

type turnResultJSON struct {
	Type      string          `json:"type"`
	Chat      *Chat           `json:"chat"`
	Workspace json.RawMessage `json:"workspace"`
}

func (r TurnResult) MarshalJSON() ([]byte, error) {
	ws := json.RawMessage(`{}`)
	if r.Workspace != nil {
		b, err := json.Marshal(r.Workspace)
		if err != nil {
			return nil, err
		}
		ws = b
	}
	return json.Marshal(turnResultJSON{Type: r.Type, Chat: r.Chat, Workspace: ws})
}

func (r *TurnResult) UnmarshalJSON(data []byte) error {
	var raw turnResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Type, r.Chat, r.Workspace = raw.Type, raw.Chat, nil

	trimmed := bytes.TrimSpace(raw.Workspace)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var ws Workspace
	if err := json.Unmarshal(trimmed, &ws); err != nil {
		return err
	}
	r.Workspace = &ws
	return nil
}

func questionResult(content string) TurnResult {
	return TurnResult{Type: TypeQuestion, Chat: &Chat{Type: TypeQuestion, Content: content}}
}

func finalResult(ws *Workspace) TurnResult {
	return TurnResult{Type: TypeFinal, Workspace: ws}
}
