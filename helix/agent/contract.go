package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ZanzyTHEbar/helix/helix/generation/harness"
)

// workspaceSchema only decides validity: tasks must be present and a list.
// Item fields are read leniently by decodeWorkspace.
var workspaceSchema = []byte(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {"type": "array"}
  }
}`)

var fieldsSchema = []byte(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object"
}`)

// workspaceContract accepts the tasks shape and rewrites the flatter
// sequence shape some models emit:
//
//	{"sequence": [{"id": 1, "type": "initial_email", "subject": "...", "body": "..."}]}
type workspaceContract struct{}

func (workspaceContract) Name() string   { return "workspace" }
func (workspaceContract) Schema() []byte { return workspaceSchema }

func (workspaceContract) Normalize(obj map[string]any) (map[string]any, error) {
	seq, ok := obj["sequence"]
	if !ok {
		return obj, nil
	}

	items, ok := seq.([]any)
	if !ok {
		return nil, fmt.Errorf("sequence is %T, not a list", seq)
	}

	tasks := make([]any, 0, len(items))
	for i, item := range items {
		step, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sequence[%d] is %T, not an object", i, item)
		}
		id, ok := step["id"]
		if !ok {
			return nil, fmt.Errorf("sequence[%d] has no id", i)
		}
		kind, ok := step["type"].(string)
		if !ok {
			return nil, fmt.Errorf("sequence[%d] has no type", i)
		}
		tasks = append(tasks, map[string]any{
			"id":          id,
			"description": fmt.Sprintf("Step %v: %s", id, humanizeType(kind)),
			"message": map[string]any{
				"subject": step["subject"],
				"body":    step["body"],
			},
		})
	}

	obj["tasks"] = tasks
	delete(obj, "sequence")
	return obj, nil
}

// humanizeType turns "linkedin_follow_up" into "Linkedin Follow Up".
func humanizeType(kind string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(kind, "_", " "))
}

// fieldsContract accepts any object; slot filtering happens after the call.
type fieldsContract struct{}

func (fieldsContract) Name() string   { return "fields" }
func (fieldsContract) Schema() []byte { return fieldsSchema }

func (fieldsContract) Normalize(obj map[string]any) (map[string]any, error) {
	return obj, nil
}

var (
	_ harness.Contract = workspaceContract{}
	_ harness.Contract = fieldsContract{}
)

// decodeWorkspace reads a validated workspace object. Missing or null text
// fields become "", ids are taken by numeric value ("1", 1 and 1.0 are all
// step 1) and anything that is not a number becomes 0.
func decodeWorkspace(raw json.RawMessage) (*Workspace, error) {
	obj, err := harness.ParseObject(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	items, ok := obj["tasks"].([]any)
	if !ok {
		return nil, fmt.Errorf("decode workspace: tasks is %T, not a list", obj["tasks"])
	}

	ws := &Workspace{
		Tasks:         make([]Step, 0, len(items)),
		FinalSequence: textValue(obj["final_sequence"]),
	}
	for _, item := range items {
		ws.Tasks = append(ws.Tasks, decodeStep(item))
	}
	return ws, nil
}

func decodeStep(item any) Step {
	fields, ok := item.(map[string]any)
	if !ok {
		return Step{Description: textValue(item)}
	}
	step := Step{
		ID:          stepID(fields["id"]),
		Description: textValue(fields["description"]),
	}
	if msg, ok := fields["message"].(map[string]any); ok {
		step.Message = &Message{
			Subject: textValue(msg["subject"]),
			Body:    textValue(msg["body"]),
		}
	}
	return step
}

func stepID(v any) int {
	var n json.Number
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	case float64:
		return int(t)
	default:
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
		return int(f)
	}
	return 0
}

// textValue renders a backend value as text; null is "".
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
