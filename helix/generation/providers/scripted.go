package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// ErrScriptExhausted is returned once a non-looping script runs out of replies.
var ErrScriptExhausted = errors.New("scripted provider has no replies left")

// Reply is one canned backend response. A non-empty Error makes the call fail.
type Reply struct {
	Text  string `yaml:"text"`
	Error string `yaml:"error"`
}

// Script is the YAML document read by LoadScript.
type Script struct {
	Loop    bool    `yaml:"loop"`
	Replies []Reply `yaml:"replies"`
}

// ScriptedProvider replays canned replies in order. It records every prompt
// it receives so callers can assert on what was sent.
type ScriptedProvider struct {
	mu      sync.Mutex
	script  Script
	next    int
	prompts []ports.PromptInput
	options []ports.Options
}

// NewScriptedProvider returns a provider that answers with texts in order.
func NewScriptedProvider(texts ...string) *ScriptedProvider {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return &ScriptedProvider{script: Script{Replies: replies}}
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*ScriptedProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*ScriptedProvider, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Replies) == 0 {
		return nil, errors.New("script has no replies")
	}
	return &ScriptedProvider{script: s}, nil
}

// Then queues more replies.
func (p *ScriptedProvider) Then(replies ...Reply) *ScriptedProvider {
	p.mu.Lock()
	p.script.Replies = append(p.script.Replies, replies...)
	p.mu.Unlock()
	return p
}

func (p *ScriptedProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	if err := ctx.Err(); err != nil {
		return ports.Completion{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompts = append(p.prompts, in)
	p.options = append(p.options, opts)

	if p.next >= len(p.script.Replies) {
		if !p.script.Loop || len(p.script.Replies) == 0 {
			return ports.Completion{}, ErrScriptExhausted
		}
		p.next = 0
	}
	r := p.script.Replies[p.next]
	p.next++

	if r.Error != "" {
		return ports.Completion{}, errors.New(r.Error)
	}
	return ports.Completion{Text: r.Text}, nil
}

// Calls reports how many completions were requested.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// Prompt returns the i-th prompt received.
func (p *ScriptedProvider) Prompt(i int) ports.PromptInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[i]
}

// Options returns the options of the i-th call.
func (p *ScriptedProvider) Options(i int) ports.Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.options[i]
}

var _ ports.Provider = (*ScriptedProvider)(nil)
