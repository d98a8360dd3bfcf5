package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

var (
	// ErrMalformedOutput means the backend text was not a single JSON object.
	ErrMalformedOutput = errors.New("malformed backend output")
	// ErrSchemaViolation means the parsed output failed the contract schema.
	ErrSchemaViolation = errors.New("backend output violates contract")
	// ErrBackend wraps transport, quota and rate-limit failures.
	ErrBackend = errors.New("backend call failed")
)

// Preset is a named sampling profile for a backend call.
type Preset struct {
	Name         string
	MaxNewTokens int
	Temperature  float32
	TimeoutMs    int
}

// Call is one contract-enforced request to the generation backend.
type Call struct {
	SessionID   string
	Instruction string
	History     []ports.PromptMessage
	Preset      Preset
}

// Contract describes the structured shape a call must produce.
type Contract interface {
	// Name keys the compiled schema.
	Name() string
	// Schema is a JSON Schema document.
	Schema() []byte
	// Normalize rewrites known alternate shapes before validation.
	Normalize(obj map[string]any) (map[string]any, error)
}

// Enforcer wraps every backend call: rate limit, trace, strict parse,
// normalize and schema validation. It keeps no state between calls.
type Enforcer struct {
	provider  ports.Provider
	builder   *PromptBuilder
	validator *JSONValidator
	limiter   ports.RateLimiter
	tracer    ports.Tracer
	logger    zerolog.Logger
}

// NewEnforcer creates an enforcer around provider.
func NewEnforcer(provider ports.Provider, limiter ports.RateLimiter, tracer ports.Tracer, logger zerolog.Logger) *Enforcer {
	if limiter == nil {
		limiter = &noOpRateLimiter{}
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	return &Enforcer{
		provider:  provider,
		builder:   NewPromptBuilder(),
		validator: NewJSONValidator(),
		limiter:   limiter,
		tracer:    tracer,
		logger:    logger.With().Str("component", "enforcer").Logger(),
	}
}

// Register compiles the contract schema up front so a bad schema fails at
// startup instead of on the first turn.
func (e *Enforcer) Register(contracts ...Contract) error {
	for _, c := range contracts {
		if err := e.validator.Compile(c.Name(), c.Schema()); err != nil {
			return err
		}
	}
	return nil
}

// Invoke runs call and returns the validated, normalized object.
func (e *Enforcer) Invoke(ctx context.Context, call Call, contract Contract) (out json.RawMessage, err error) {
	ctx, finish := e.tracer.StartSpan(ctx, "enforce", map[string]any{
		"session_id": call.SessionID,
		"contract":   contract.Name(),
		"preset":     call.Preset.Name,
	})
	defer func() { finish(err) }()

	text, err := e.complete(ctx, call)
	if err != nil {
		e.logger.Error().Err(err).Str("session_id", call.SessionID).Str("contract", contract.Name()).Msg("backend call failed")
		return nil, err
	}

	obj, err := ParseObject(text)
	if err != nil {
		e.tracer.Event(ctx, "contract_violation", map[string]any{"reason": err.Error()})
		e.logger.Error().Err(err).Str("contract", contract.Name()).Str("raw", text).Msg("unparseable backend output")
		return nil, err
	}

	obj, err = contract.Normalize(obj)
	if err != nil {
		e.tracer.Event(ctx, "contract_violation", map[string]any{"reason": err.Error()})
		e.logger.Error().Err(err).Str("contract", contract.Name()).Str("raw", text).Msg("output normalization failed")
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	out, err = json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	if verr := e.validator.Validate(contract.Name(), contract.Schema(), out); verr != nil {
		e.tracer.Event(ctx, "contract_violation", map[string]any{"reason": verr.Error()})
		e.logger.Error().Err(verr).Str("contract", contract.Name()).Str("raw", text).Msg("output failed schema")
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, verr)
	}

	return out, nil
}

func (e *Enforcer) complete(ctx context.Context, call Call) (string, error) {
	if e.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrBackend)
	}

	release, err := e.limiter.Acquire(ctx, call.SessionID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackend, err)
	}
	defer release()

	if call.Preset.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(call.Preset.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	prompt := e.builder.Build(call.Instruction, call.History, map[string]string{
		"session_id": call.SessionID,
		"preset":     call.Preset.Name,
	})
	opts := ports.Options{
		MaxNewTokens: call.Preset.MaxNewTokens,
		Temperature:  call.Preset.Temperature,
		TimeoutMs:    call.Preset.TimeoutMs,
	}

	ctx, spanFinish := e.tracer.StartSpan(ctx, "provider_call", map[string]any{
		"max_new_tokens": opts.MaxNewTokens,
		"temperature":    opts.Temperature,
	})
	completion, err := e.provider.Complete(ctx, prompt, opts)
	spanFinish(err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackend, err)
	}
	if completion.Usage != nil {
		e.tracer.Event(ctx, "usage", map[string]any{
			"prompt_tokens":     completion.Usage.PromptTokens,
			"completion_tokens": completion.Usage.CompletionTokens,
		})
	}
	return completion.Text, nil
}

// ParseObject strictly decodes text as exactly one JSON object. Numbers are
// kept as json.Number so integer ids survive normalization unchanged.
func ParseObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedOutput)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedOutput)
	}
	return obj, nil
}
