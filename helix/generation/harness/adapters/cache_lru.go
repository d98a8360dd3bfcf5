package adapters

import (
	"sync"
	"time"
)

// LRUCache implements a simple LRU cache with sliding TTL support.
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration // zero disables expiry
	items    map[string]*cacheItem[V]
	head     *cacheItem[V]
	tail     *cacheItem[V]
	onEvict  func(key string, value V)
	now      func() time.Time
}

type cacheItem[V any] struct {
	key     string
	value   V
	expires time.Time
	prev    *cacheItem[V]
	next    *cacheItem[V]
}

// NewLRUCache creates a new LRU cache with the specified capacity. Entries
// idle for longer than ttl are dropped on access.
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheItem[V]),
		now:      time.Now,
	}
}

// OnEvict registers a callback run (outside the lock) for every entry removed
// by capacity pressure or expiry. Explicit Delete does not trigger it.
func (c *LRUCache[V]) OnEvict(fn func(key string, value V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get retrieves a value from the cache and refreshes its TTL.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()

	var zero V
	item, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return zero, false
	}

	if c.expired(item) {
		c.removeItem(item)
		delete(c.items, key)
		evict := c.onEvict
		c.mu.Unlock()
		if evict != nil {
			evict(item.key, item.value)
		}
		return zero, false
	}

	c.touch(item)
	c.moveToFront(item)
	value := item.value
	c.mu.Unlock()
	return value, true
}

// Set stores a value in the cache.
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()

	if item, exists := c.items[key]; exists {
		item.value = value
		c.touch(item)
		c.moveToFront(item)
		c.mu.Unlock()
		return
	}

	item := &cacheItem[V]{key: key, value: value}
	c.touch(item)
	c.addToFront(item)
	c.items[key] = item

	var evicted *cacheItem[V]
	if len(c.items) > c.capacity {
		evicted = c.evictLRU()
	}
	evict := c.onEvict
	c.mu.Unlock()

	if evicted != nil && evict != nil {
		evict(evicted.key, evicted.value)
	}
}

// Delete removes a key from the cache.
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return
	}
	c.removeItem(item)
	delete(c.items, key)
}

// Len reports the number of live and not yet collected entries.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[V]) touch(item *cacheItem[V]) {
	if c.ttl > 0 {
		item.expires = c.now().Add(c.ttl)
	}
}

func (c *LRUCache[V]) expired(item *cacheItem[V]) bool {
	return c.ttl > 0 && c.now().After(item.expires)
}

// moveToFront moves an item to the front of the LRU list.
func (c *LRUCache[V]) moveToFront(item *cacheItem[V]) {
	if item == c.head {
		return
	}
	c.removeItem(item)
	c.addToFront(item)
}

// addToFront adds an item to the front of the LRU list.
func (c *LRUCache[V]) addToFront(item *cacheItem[V]) {
	item.next = c.head
	item.prev = nil

	if c.head != nil {
		c.head.prev = item
	}
	c.head = item

	if c.tail == nil {
		c.tail = item
	}
}

// removeItem removes an item from the LRU list.
func (c *LRUCache[V]) removeItem(item *cacheItem[V]) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		c.head = item.next
	}

	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.tail = item.prev
	}

	item.prev = nil
	item.next = nil
}

// evictLRU removes and returns the least recently used item.
func (c *LRUCache[V]) evictLRU() *cacheItem[V] {
	if c.tail == nil {
		return nil
	}
	item := c.tail
	c.removeItem(item)
	delete(c.items, item.key)
	return item
}
