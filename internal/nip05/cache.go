package nip05

import (
	"sync"
	"time"
)

// cacheEntry holds one resolved identifier.
type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// identCache is a thread-safe in-memory cache for resolved identifiers.
// Entries expire after a configurable TTL.
type identCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newIdentCache(ttl time.Duration) *identCache {
	return &identCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// get looks up a cached result by identifier.
func (c *identCache) get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired() {
		return Result{}, false
	}
	return e.result, true
}

// set stores a result in the cache.
func (c *identCache) set(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
}
