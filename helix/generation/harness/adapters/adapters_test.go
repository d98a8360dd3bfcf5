package adapters

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// TestLRUCache_BasicOperations tests cache functionality.
func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache[string](2, 0)

	var evicted []string
	cache.OnEvict(func(key string, _ string) { evicted = append(evicted, key) })

	cache.Set("key1", "value1")
	value, ok := cache.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", value)

	// capacity 2, third insert pushes out the least recently used
	cache.Set("key2", "value2")
	cache.Get("key1")
	cache.Set("key3", "value3")

	_, ok = cache.Get("key2")
	assert.False(t, ok)
	_, ok = cache.Get("key1")
	assert.True(t, ok)
	_, ok = cache.Get("key3")
	assert.True(t, ok)
	assert.Equal(t, []string{"key2"}, evicted)

	cache.Delete("key1")
	_, ok = cache.Get("key1")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, []string{"key2"}, evicted, "explicit delete does not fire the eviction hook")
}

func TestLRUCache_SlidingTTL(t *testing.T) {
	cache := NewLRUCache[int](10, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }

	var evicted []string
	cache.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	cache.Set("a", 1)
	now = now.Add(50 * time.Second)
	_, ok := cache.Get("a")
	require.True(t, ok)

	// the read above extended the deadline
	now = now.Add(50 * time.Second)
	_, ok = cache.Get("a")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, evicted)
}

// TestTokenBucket_BasicRateLimiting tests rate limiting functionality.
func TestTokenBucket_BasicRateLimiting(t *testing.T) {
	limiter := NewTokenBucket(2, time.Second)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()

	release1, err := limiter.Acquire(ctx, "session-a")
	require.NoError(t, err)
	release1()
	_, err = limiter.Acquire(ctx, "session-a")
	require.NoError(t, err)

	_, err = limiter.Acquire(ctx, "session-a")
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	// other keys have their own bucket
	_, err = limiter.Acquire(ctx, "session-b")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = limiter.Acquire(ctx, "session-a")
	assert.NoError(t, err)

	limiter.Forget("session-a")
	_, err = limiter.Acquire(ctx, "session-a")
	assert.NoError(t, err)
}

func TestTokenBucket_ZeroRefillNeverLimits(t *testing.T) {
	limiter := NewTokenBucket(1, 0)
	for i := 0; i < 5; i++ {
		_, err := limiter.Acquire(context.Background(), "k")
		require.NoError(t, err)
	}
}

func TestTokenBucket_CanceledContext(t *testing.T) {
	limiter := NewTokenBucket(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := limiter.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub(1)
	ctx := context.Background()

	events, cancel := hub.Subscribe("s1")
	other, cancelOther := hub.Subscribe("s2")
	defer cancelOther()

	require.NoError(t, hub.Publish(ctx, ports.Event{SessionID: "s1", Name: ports.EventAIResponse, Payload: "hello"}))
	// buffer of one: the second event is dropped, not blocked on
	require.NoError(t, hub.Publish(ctx, ports.Event{SessionID: "s1", Name: ports.EventAIResponse, Payload: "dropped"}))

	ev := <-events
	assert.Equal(t, "hello", ev.Payload)
	assert.Len(t, other, 0)

	assert.Equal(t, 1, hub.Subscribers("s1"))
	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers("s1"))
	_, open := <-events
	assert.False(t, open)

	// publishing with no listeners is fine
	assert.NoError(t, hub.Publish(ctx, ports.Event{SessionID: "s1", Name: ports.EventAIResponse}))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(ctx context.Context, ev ports.Event) error {
	p.calls++
	return errors.New("channel down")
}

func TestFanout_PublishesToAll(t *testing.T) {
	hub := NewHub(4)
	events, cancel := hub.Subscribe("s1")
	defer cancel()

	failing := &failingPublisher{}
	err := Fanout{failing, hub}.Publish(context.Background(), ports.Event{SessionID: "s1", Name: ports.EventWorkspaceUpdate})

	assert.EqualError(t, err, "channel down")
	assert.Equal(t, 1, failing.calls)
	assert.Len(t, events, 1)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "helix.abc-123.ai_response", Subject("helix", "abc-123", ports.EventAIResponse))
	assert.Equal(t, "helix.a_b_c.update_workspace", Subject("helix", "a.b c", ports.EventUpdateWorkspace))
	assert.Equal(t, "helix._.x", Subject("helix", "", "x"))
}

func TestZerologTracer_Span(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewZerologTracer(zerolog.New(&buf).Level(zerolog.DebugLevel))

	ctx, finish := tracer.StartSpan(context.Background(), "provider_call", map[string]any{"preset": "generation"})
	tracer.Event(ctx, "contract_violation", map[string]any{"reason": "missing tasks"})
	finish(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"span":"provider_call"`)
	assert.Contains(t, out, `"event":"contract_violation"`)
	assert.Contains(t, out, `"event":"span_end"`)
	assert.Contains(t, out, "boom")
}
