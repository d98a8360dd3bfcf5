// Package providers implements the generation backends behind ports.Provider.
package providers

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/helix/helix/config"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// New selects the backend named by cfg.Provider.
func New(cfg config.LLMConfig, logger zerolog.Logger) (ports.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "scripted":
		if cfg.ScriptPath == "" {
			return nil, fmt.Errorf("scripted provider requires llm.script_path")
		}
		return LoadScript(cfg.ScriptPath)
	case "llama":
		return NewLlamaProvider(LlamaConfig{
			ModelPath:   cfg.ModelPath,
			ContextSize: cfg.ContextSize,
			Threads:     cfg.Threads,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
