// Package cache provides a small in-memory TTL cache used to collapse
// repeated market lookups for the same vehicle within a run window.
package cache

import (
	"sync"
	"time"

	"quickflip/internal/logging"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache is a concurrency-safe key-value cache with per-cache TTL.
// Expired entries are dropped lazily on access.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a TTLCache. A non-positive ttl disables caching entirely,
// which keeps call sites unconditional.
func New(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, or false if absent or expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: another goroutine may have
		// replaced the entry since we read it.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		logging.CacheDebug("expired entry dropped: %s", key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	logging.CacheDebug("stored entry: %s (ttl %v)", key, c.ttl)
}

// Len returns the number of entries, including any not yet reaped.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes all entries.
func (c *TTLCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
