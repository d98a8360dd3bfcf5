package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/helix/helix/agent"
	"github.com/ZanzyTHEbar/helix/helix/config"
	"github.com/ZanzyTHEbar/helix/helix/generation/harness"
	"github.com/ZanzyTHEbar/helix/helix/generation/providers"
)

const sequenceReply = `{"tasks": [{"id": 1, "description": "Step 1: Email", "message": {"subject": "Hi", "body": "Hello"}}], "final_sequence": "Step 1"}`

func TestRunChat(t *testing.T) {
	provider := providers.NewScriptedProvider(`{"job_role": null}`)
	orch, err := agent.New(harness.NewEnforcer(provider, nil, nil, zerolog.Nop()), agent.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("I need to hire\n\nignored\n")
	require.NoError(t, runChat(context.Background(), orch, agent.NewSession("s1"), in, &out))

	assert.Equal(t, "> What is the job role?\n> ", out.String())
	assert.Equal(t, 1, provider.Calls())
}

func TestRunChat_PrintsWorkspace(t *testing.T) {
	filled := `{"job_role": "Engineer", "technologies": "Go", "company_description": "Acme", "location": "Remote", "benefits": "Equity"}`
	provider := providers.NewScriptedProvider(filled, sequenceReply)
	orch, err := agent.New(harness.NewEnforcer(provider, nil, nil, zerolog.Nop()), agent.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), orch, agent.NewSession("s1"), strings.NewReader("hire a Go engineer"), &out))

	assert.Contains(t, out.String(), `"final_sequence": "Step 1"`)
	assert.Contains(t, out.String(), `"subject": "Hi"`)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	script := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte("loop: true\nreplies:\n  - text: '{\"job_role\": null}'\n"), 0o644))

	return &config.Config{
		LLM: config.LLMConfig{Provider: "scripted", ScriptPath: script},
		Harness: config.HarnessConfig{
			RateLimitEnabled:    true,
			RateLimitCapacity:   5,
			RateLimitRefillRate: time.Second,
		},
		Sessions: config.SessionsConfig{Capacity: 1, TTL: time.Hour},
		Notify:   config.NotifyConfig{Provider: "hub"},
		Dispatch: config.DispatchConfig{Workers: 1, QueueSize: 8},
	}
}

func TestNewRuntime(t *testing.T) {
	rt, err := newRuntime(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	require.NotNil(t, rt.notifier.Hub)
	assert.Nil(t, rt.conn)

	first := rt.registry.Create()
	result := rt.orch.ProcessTurn(context.Background(), first, "hello")
	assert.Equal(t, agent.TypeQuestion, result.Type)

	// capacity one: the second session evicts the first
	rt.registry.Create()
	_, err = rt.registry.Get(first.ID)
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)

	assert.NoError(t, rt.Close())
}

func TestNewRuntime_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Provider = "carrier-pigeon"
	_, err := newRuntime(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.LLM.Provider = "unknown"
	_, err = newRuntime(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewRuntime_DurableLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Helix.Database = config.DatabaseConfig{
		Enabled: true,
		DSN:     "file:" + filepath.Join(t.TempDir(), "helix.db"),
	}

	rt, err := newRuntime(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, rt.conn)

	rt.orch.ProcessTurn(context.Background(), rt.registry.Create(), "hello")
	require.NoError(t, rt.Close())
}
