package engine

import (
	"sync"
	"time"
)

// memoCache is a short-TTL memo keyed by the exact filter, used only to
// avoid recomputing one window across paginated requests. Entries are
// evicted lazily on lookup.
type memoCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[Filter]memoEntry
}

type memoEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

func newMemoCache(ttl time.Duration) *memoCache {
	return &memoCache{
		ttl:     ttl,
		entries: make(map[Filter]memoEntry),
	}
}

func (c *memoCache) get(key Filter) (*Snapshot, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.snapshot, true
}

func (c *memoCache) put(key Filter, snapshot *Snapshot) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(c.ttl),
	}
}
