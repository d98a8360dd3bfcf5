package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Slots are the required fields in the order they are asked for.
var Slots = [...]string{
	"job_role",
	"technologies",
	"company_description",
	"location",
	"benefits",
}

func slotIndex(slot string) int {
	for i, s := range Slots {
		if s == slot {
			return i
		}
	}
	return -1
}

// RequiredFields holds the extracted hiring details. A slot, once filled,
// keeps its value for the rest of the session.
type RequiredFields struct {
	values [len(Slots)]string
}

// Get returns the value of slot, empty when unknown.
func (f *RequiredFields) Get(slot string) string {
	if i := slotIndex(slot); i >= 0 {
		return f.values[i]
	}
	return ""
}

// Fill stores value in an empty slot. It reports whether anything changed.
func (f *RequiredFields) Fill(slot, value string) bool {
	i := slotIndex(slot)
	value = strings.TrimSpace(value)
	if i < 0 || value == "" || f.values[i] != "" {
		return false
	}
	f.values[i] = value
	return true
}

// Missing lists empty slots in declaration order.
func (f *RequiredFields) Missing() []string {
	var missing []string
	for i, v := range f.values {
		if v == "" {
			missing = append(missing, Slots[i])
		}
	}
	return missing
}

// Complete reports whether every slot is filled.
func (f *RequiredFields) Complete() bool {
	return len(f.Missing()) == 0
}

// MarshalJSON writes slots in declaration order, null when empty.
func (f RequiredFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, slot := range Slots {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", slot)
		if f.values[i] == "" {
			buf.WriteString("null")
			continue
		}
		v, err := json.Marshal(f.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map returns the filled slots.
func (f *RequiredFields) Map() map[string]string {
	out := make(map[string]string, len(Slots))
	for i, v := range f.values {
		if v != "" {
			out[Slots[i]] = v
		}
	}
	return out
}

// humanizeSlot turns "job_role" into "job role".
func humanizeSlot(slot string) string {
	return strings.ReplaceAll(slot, "_", " ")
}

func questionFor(slot string) string {
	return fmt.Sprintf("What is the %s?", humanizeSlot(slot))
}

// extractedValue flattens a backend-supplied slot value to text. Falsy
// values come back empty and are never stored.
func extractedValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "true"
		}
		return ""
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := extractedValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := extractedValue(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
