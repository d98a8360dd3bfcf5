//go:build !llama

package providers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

var errLlamaNotAvailable = errors.New("llama.cpp not available in this build (rebuild with -tags llama)")

// LlamaProvider is a placeholder for builds without llama.cpp.
type LlamaProvider struct{}

// LlamaConfig holds model loading options.
type LlamaConfig struct {
	ModelPath   string
	ContextSize int
	Threads     int
}

func NewLlamaProvider(cfg LlamaConfig, logger zerolog.Logger) (*LlamaProvider, error) {
	return nil, errLlamaNotAvailable
}

func (p *LlamaProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	return ports.Completion{}, errLlamaNotAvailable
}

func (p *LlamaProvider) Close() error { return nil }

var _ ports.Provider = (*LlamaProvider)(nil)
