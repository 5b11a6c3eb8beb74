// internal/cache/cache.go
package cache

import (
	"sync"
	"time"
)

type entry struct {
	data      any
	createdAt time.Time
	expireAt  time.Time
}

// Stats is a snapshot of the cache contents.
type Stats struct {
	Total   int
	Active  int
	Expired int
}

// Cache is a process-wide in-memory key→value store with per-entry TTL and
// lazy expiry on read. Entries for independent keys may be accessed from
// concurrent turns of different users, so all access is mutex-guarded; there
// is never any cross-key coordination.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value stored under key. An expired entry is deleted and
// reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expireAt.IsZero() && c.now().After(e.expireAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores data under key for ttl. A non-positive ttl stores the entry
// without expiry.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := entry{data: data, createdAt: now}
	if ttl > 0 {
		e.expireAt = now.Add(ttl)
	}
	c.entries[key] = e
}

// Delete removes the entry for key, if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

// CleanupExpired sweeps out expired entries and returns how many were
// removed. Expiry is already enforced lazily on Get; this exists for an
// external scheduler that wants to bound memory between reads.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !e.expireAt.IsZero() && now.After(e.expireAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Snapshot counts active versus expired entries without evicting anything.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	st := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if !e.expireAt.IsZero() && now.After(e.expireAt) {
			st.Expired++
		} else {
			st.Active++
		}
	}
	return st
}
