// Package org implements target-org resolution: the logic that turns an
// optional caller-supplied org identifier into the org an operation
// actually runs against.
package org

import (
	"sync"
	"time"
)

// DefaultTTL is how long a fetched default org stays valid. The platform
// default changes rarely; 30 seconds keeps bursts of tool calls from
// re-spawning the CLI while still noticing out-of-band changes quickly.
const DefaultTTL = 30 * time.Second

// Cache holds the platform's default org between lookups. It is the only
// shared mutable state in the resolution path, and Get/Set/Invalidate is
// its entire mutation surface.
//
// Writers do not coordinate: concurrent misses may each fetch and the
// last write wins, which is benign because every writer stores the
// platform's current default within the same TTL window.
type Cache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	value     string
	fetchedAt time.Time
	now       func() time.Time
}

// NewCache creates a cache with the given TTL. ttl <= 0 falls back to
// DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached value and whether it is still fresh. The cached
// value may be "" (the platform can have no default configured); fresh
// reports whether the entry is usable, not whether it is non-empty.
func (c *Cache) Get() (value string, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() {
		return "", false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		return "", false
	}
	return c.value, true
}

// Set overwrites the entry with a freshly fetched value.
func (c *Cache) Set(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.fetchedAt = c.now()
}

// Invalidate clears the entry immediately. Must be called after any
// action that changes the platform's configured default, so the next
// resolution re-fetches instead of serving a stale value.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.fetchedAt = time.Time{}
}
