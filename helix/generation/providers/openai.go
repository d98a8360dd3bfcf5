package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// OpenAIConfig holds connection details for NewOpenAIProvider.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewOpenAIProvider(cfg OpenAIConfig, logger zerolog.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai provider requires an api key")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai provider requires a model")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.With().Str("provider", "openai").Str("model", cfg.Model).Logger(),
	}, nil
}

// Complete sends the instruction as the system message followed by the history.
func (p *OpenAIProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toChatMessages(in),
		MaxTokens:   opts.MaxNewTokens,
		Temperature: opts.Temperature,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, errors.New("chat completion returned no choices")
	}

	p.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("chat completion")

	return ports.Completion{
		Text: resp.Choices[0].Message.Content,
		Raw:  resp,
		Usage: &ports.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func toChatMessages(in ports.PromptInput) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(in.Messages)+1)
	if in.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: in.System})
	}
	for _, m := range in.Messages {
		role := m.Role
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant:
		default:
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}

var _ ports.Provider = (*OpenAIProvider)(nil)
