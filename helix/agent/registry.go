package agent

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/helix/helix/generation/harness/adapters"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry owns session lifecycle. Idle sessions are dropped after ttl, and
// the least recently used one goes when capacity is reached.
type Registry struct {
	mu       sync.Mutex
	sessions *adapters.LRUCache[*Session]
}

// NewRegistry creates a registry. onEvict, when set, is called with the id
// of every session dropped by capacity or idleness.
func NewRegistry(capacity int, ttl time.Duration, onEvict func(id string)) *Registry {
	cache := adapters.NewLRUCache[*Session](capacity, ttl)
	if onEvict != nil {
		cache.OnEvict(func(id string, _ *Session) { onEvict(id) })
	}
	return &Registry{sessions: cache}
}

// Create starts a session under a fresh id.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(uuid.NewString())
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Session, error) {
	if s, ok := r.sessions.Get(id); ok {
		return s, nil
	}
	return nil, ErrSessionNotFound
}

// Resolve returns the session for id, creating one when it is unknown. Ids
// that are not UUIDs are replaced by a fresh one, so callers must use the
// returned session's ID.
func (r *Registry) Resolve(id string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.sessions.Get(id); ok {
			return s, false
		}
		if _, err := uuid.Parse(id); err == nil {
			return r.create(id), true
		}
	}
	return r.create(uuid.NewString()), true
}

// Delete ends a session.
func (r *Registry) Delete(id string) {
	r.sessions.Delete(id)
}

// Len reports how many sessions are held.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) create(id string) *Session {
	s := NewSession(id)
	r.sessions.Set(id, s)
	return s
}
