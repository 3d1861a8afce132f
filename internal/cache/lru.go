package cache

import (
	"container/list"
	"sync"
	"time"
)

// entry is a cache slot with its expiry and eviction-list element.
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	element   *list.Element
}

// LRU is a generic fixed-capacity cache with per-entry TTL.
// Both capacity and TTL are fixed at construction; there is no
// package-level instance. Expired entries are dropped on access.
type LRU[K comparable, V any] struct {
	capacity  int
	ttl       time.Duration
	entries   map[K]*entry[K, V]
	evictList *list.List
	mu        sync.Mutex
}

// New creates an LRU cache holding at most capacity entries, each
// valid for ttl after its last Set.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:  capacity,
		ttl:       ttl,
		entries:   make(map[K]*entry[K, V]),
		evictList: list.New(),
	}
}

// Get returns the cached value and true if present and not expired.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return zero, false
	}

	c.evictList.MoveToFront(e.element)
	return e.value, true
}

// Set adds or refreshes a value, evicting the least recently used
// entries when over capacity.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.evictList.MoveToFront(e.element)
		return
	}

	e := &entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	e.element = c.evictList.PushFront(e)
	c.entries[key] = e

	for c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.removeEntry(oldest.Value.(*entry[K, V]))
	}
}

// Delete removes a single key.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeEntry(e)
	}
}

// DeleteFunc removes every entry matching the predicate.
func (c *LRU[K, V]) DeleteFunc(pred func(K, V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if pred(key, e.value) {
			c.removeEntry(e)
		}
	}
}

// Clear removes all entries.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.evictList = list.New()
}

// Len returns the number of entries, expired ones included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU[K, V]) removeEntry(e *entry[K, V]) {
	c.evictList.Remove(e.element)
	delete(c.entries, e.key)
}
