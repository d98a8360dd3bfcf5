//go:build llama

package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// LlamaProvider runs a local GGUF model through llama.cpp. The model is not
// safe for concurrent prediction, so calls are serialized.
type LlamaProvider struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
	logger  zerolog.Logger
}

// LlamaConfig holds model loading options.
type LlamaConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
}

func NewLlamaProvider(cfg LlamaConfig, logger zerolog.Logger) (*LlamaProvider, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("llama provider requires a model path")
	}

	model, err := llama.New(cfg.ModelPath, llama.SetContext(cfg.ContextSize))
	if err != nil {
		return nil, fmt.Errorf("llama.New failed: %w", err)
	}

	return &LlamaProvider{
		model:   model,
		threads: cfg.Threads,
		logger:  logger.With().Str("provider", "llama").Str("model_path", cfg.ModelPath).Logger(),
	}, nil
}

func (p *LlamaProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	if err := ctx.Err(); err != nil {
		return ports.Completion{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	predictOpts := []llama.PredictOption{
		llama.SetTokens(opts.MaxNewTokens),
		llama.SetTemperature(opts.Temperature),
		llama.SetStopWords("### User:"),
	}
	if p.threads > 0 {
		predictOpts = append(predictOpts, llama.SetThreads(p.threads))
	}

	text, err := p.model.Predict(renderTranscript(in), predictOpts...)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("llama predict failed: %w", err)
	}
	return ports.Completion{Text: strings.TrimSpace(text)}, nil
}

// Close frees the model.
func (p *LlamaProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model.Free()
	return nil
}

var _ ports.Provider = (*LlamaProvider)(nil)
