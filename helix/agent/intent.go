package agent

import "strings"

// Intent is what a user utterance asks the orchestrator to do.
type Intent int

const (
	IntentGather Intent = iota
	IntentAppend
	IntentEdit
)

func (i Intent) String() string {
	switch i {
	case IntentAppend:
		return "append"
	case IntentEdit:
		return "edit"
	default:
		return "gather"
	}
}

var (
	appendKeywords = []string{"add", "insert", "append"}
	editKeywords   = []string{"edit", "change", "modify", "update"}
)

// Classify matches keywords as substrings of the lower-cased utterance.
// Append wins over edit, and without a workspace everything is gather.
func Classify(utterance string, hasWorkspace bool) Intent {
	if !hasWorkspace {
		return IntentGather
	}
	text := strings.ToLower(utterance)
	if containsAny(text, appendKeywords) {
		return IntentAppend
	}
	if containsAny(text, editKeywords) {
		return IntentEdit
	}
	return IntentGather
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
