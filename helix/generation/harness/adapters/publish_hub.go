package adapters

import (
	"context"
	"sync"

	ports "github.com/ZanzyTHEbar/helix/helix/generation/harness/ports"
)

// Hub fans events out to in-process subscribers of a session. A slow
// subscriber loses events rather than stalling the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan ports.Event]struct{}
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]map[chan ports.Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a listener for sessionID. Call cancel to unsubscribe;
// it closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, h.buffer)

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan ports.Event]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber of its session.
func (h *Hub) Publish(ctx context.Context, ev ports.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribers reports how many listeners a session has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Fanout publishes to every wrapped publisher and returns the first error.
type Fanout []ports.Publisher

func (f Fanout) Publish(ctx context.Context, ev ports.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ ports.Publisher = (*Hub)(nil)
	_ ports.Publisher = Fanout(nil)
)
