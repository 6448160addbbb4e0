// Package cache provides a bounded in-memory LRU buffer. The memory
// aggregator uses it as the short-term layer: most-recent-N entries,
// in-process only, lost on restart.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// LRU is a bounded key-value buffer with least-recently-used eviction
// and optional TTL expiry.
type LRU[V any] struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List

	hits   int64
	misses int64
}

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewLRU creates a new buffer holding at most maxEntries values.
// A zero ttl disables expiry.
func NewLRU[V any](maxEntries int, ttl time.Duration) *LRU[V] {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &LRU[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the value for key and whether it was present.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	entry := elem.Value.(*lruEntry[V])
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	c.order.MoveToFront(elem)
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// Set stores value under key, evicting the oldest entry at capacity.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		entry := elem.Value.(*lruEntry[V])
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxEntries {
		c.evictOldest()
	}

	elem := c.order.PushFront(&lruEntry[V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.entries[key] = elem
}

// Delete removes key.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

// Recent returns up to n values, most recently used first.
func (c *LRU[V]) Recent(n int) []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || n > c.order.Len() {
		n = c.order.Len()
	}

	out := make([]V, 0, n)
	for elem := c.order.Front(); elem != nil && len(out) < n; elem = elem.Next() {
		out = append(out, elem.Value.(*lruEntry[V]).value)
	}
	return out
}

// Len returns the number of buffered entries.
func (c *LRU[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Stats contains buffer statistics.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns buffer statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Entries: c.order.Len(),
	}
}

func (c *LRU[V]) evictOldest() {
	elem := c.order.Back()
	if elem != nil {
		entry := elem.Value.(*lruEntry[V])
		delete(c.entries, entry.key)
		c.order.Remove(elem)
	}
}
