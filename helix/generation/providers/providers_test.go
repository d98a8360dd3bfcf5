package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/helix/helix/config"
	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

func TestScriptedProvider_ReplaysInOrder(t *testing.T) {
	p := NewScriptedProvider(`{"a":1}`, `{"b":2}`)
	ctx := context.Background()

	c, err := p.Complete(ctx, ports.PromptInput{System: "first"}, ports.Options{MaxNewTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, c.Text)

	c, err = p.Complete(ctx, ports.PromptInput{System: "second"}, ports.Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, c.Text)

	_, err = p.Complete(ctx, ports.PromptInput{}, ports.Options{})
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Equal(t, 3, p.Calls())
	assert.Equal(t, "second", p.Prompt(1).System)
	assert.Equal(t, 500, p.Options(0).MaxNewTokens)
}

func TestScriptedProvider_Script(t *testing.T) {
	script := `
loop: true
replies:
  - text: '{"job_role": "Engineer"}'
  - error: "backend down"
`
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	p, err := LoadScript(path)
	require.NoError(t, err)

	ctx := context.Background()
	c, err := p.Complete(ctx, ports.PromptInput{}, ports.Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"job_role": "Engineer"}`, c.Text)

	_, err = p.Complete(ctx, ports.PromptInput{}, ports.Options{})
	assert.EqualError(t, err, "backend down")

	// loops back to the first reply
	c, err = p.Complete(ctx, ports.PromptInput{}, ports.Options{})
	require.NoError(t, err)
	assert.Contains(t, c.Text, "Engineer")

	_, err = ParseScript([]byte("replies: []"))
	assert.Error(t, err)
	_, err = ParseScript([]byte("replies: [unclosed"))
	assert.Error(t, err)
	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScriptedProvider_Then(t *testing.T) {
	p := NewScriptedProvider().Then(Reply{Text: "one"})
	c, err := p.Complete(context.Background(), ports.PromptInput{}, ports.Options{})
	require.NoError(t, err)
	assert.Equal(t, "one", c.Text)
}

func TestScriptedProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScriptedProvider("x").Complete(ctx, ports.PromptInput{}, ports.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"tasks\": []}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "test-key", Model: "gpt-4"}, zerolog.Nop())
	require.NoError(t, err)

	c, err := p.Complete(context.Background(), ports.PromptInput{
		System: "You are Helix",
		Messages: []ports.PromptMessage{
			{Role: "user", Content: "hiring a Go engineer"},
			{Role: "assistant", Content: "What is the location?"},
		},
	}, ports.Options{MaxNewTokens: 500, Temperature: 0.3})
	require.NoError(t, err)

	assert.Equal(t, `{"tasks": []}`, c.Text)
	require.NotNil(t, c.Usage)
	assert.Equal(t, 16, c.Usage.TotalTokens)

	assert.Equal(t, "gpt-4", got["model"])
	assert.EqualValues(t, 500, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "You are Helix", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "insufficient_quota"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "gpt-4"}, zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), ports.PromptInput{System: "x"}, ports.Options{})
	assert.Error(t, err)
}

func TestNewOpenAIProvider_Validation(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4"}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRenderTranscript(t *testing.T) {
	out := renderTranscript(ports.PromptInput{
		System:   "Be brief",
		Messages: []ports.PromptMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	})
	assert.Equal(t, "### System:\nBe brief\n\n### User:\nhi\n\n### Assistant:\nhello\n\n### Assistant:\n", out)
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replies:\n  - text: ok\n"), 0o644))

	p, err := New(config.LLMConfig{Provider: "scripted", ScriptPath: path}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ScriptedProvider{}, p)

	_, err = New(config.LLMConfig{Provider: "scripted"}, zerolog.Nop())
	assert.Error(t, err)

	p, err = New(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, p)

	_, err = New(config.LLMConfig{Provider: "mystery"}, zerolog.Nop())
	assert.Error(t, err)
}
