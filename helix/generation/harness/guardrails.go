package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// JSONValidator handles JSON schema validation. Compiled schemas are reused
// across calls.
type JSONValidator struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

// NewJSONValidator creates a new JSON validator.
func NewJSONValidator() *JSONValidator {
	return &JSONValidator{schemas: make(map[string]*gojsonschema.Schema)}
}

// Compile registers schema under name.
func (v *JSONValidator) Compile(name string, schema []byte) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.schemas[name] = compiled
	v.mu.Unlock()
	return nil
}

// Validate checks if JSON data conforms to the schema registered under name,
// compiling raw on first use.
func (v *JSONValidator) Validate(name string, raw []byte, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("data is not valid JSON")
	}

	v.mu.RLock()
	schema, ok := v.schemas[name]
	v.mu.RUnlock()
	if !ok {
		if len(raw) == 0 {
			return nil // no schema to validate against
		}
		if err := v.Compile(name, raw); err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		v.mu.RLock()
		schema = v.schemas[name]
		v.mu.RUnlock()
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
