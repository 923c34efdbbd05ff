/*
cache.go - Read-through cache for table snapshots

PURPOSE:
  Spreadsheet reads are slow and rate limited, so the service keeps recent
  snapshots for a fixed time-to-live. The Cache interface lets a shared
  backend (cache/redis) replace the process-local MemoryCache without
  touching callers.

SEMANTICS:
  Get misses when the key was never set or when now - fetchedAt >= ttl.
  Expiry is checked lazily on Get; stale entries are not purged in the
  background, so the map grows with the number of distinct keys. Set
  overwrites and restamps. A ttl <= 0 disables caching.

KEYS:
  steps_catalog              Steps table
  clients_all                Clients table
  client_checklist_<CODE>    one client's Checklist rows

CONSISTENCY:
  Each process holds its own MemoryCache. A write on one instance does not
  invalidate another instance's entries; staleness is bounded by the ttl.
*/
package tracking

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache keys.
const (
	CacheKeySteps           = "steps_catalog"
	CacheKeyClients         = "clients_all"
	CacheKeyChecklistPrefix = "client_checklist_"
)

// ChecklistCacheKey returns the cache key for one client's checklist rows.
func ChecklistCacheKey(code string) string {
	return CacheKeyChecklistPrefix + NormalizeCode(code)
}

// Cache holds table snapshots by key.
type Cache interface {
	Get(ctx context.Context, key string) (Snapshot, bool)
	Set(ctx context.Context, key string, value Snapshot)
	// Invalidate removes an exact key.
	Invalidate(ctx context.Context, key string)
	// InvalidatePattern removes every key containing substr.
	InvalidatePattern(ctx context.Context, substr string)
	InvalidateAll(ctx context.Context)
}

// =============================================================================
// MEMORY CACHE
// =============================================================================

type cacheEntry struct {
	value     Snapshot
	fetchedAt time.Time
}

// MemoryCache is a process-local Cache with a fixed ttl.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock replaces the time source. Used by tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// TTL returns the configured time-to-live.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

func (c *MemoryCache) Get(_ context.Context, key string) (Snapshot, bool) {
	if c.ttl <= 0 {
		return Snapshot{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value Snapshot) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) InvalidatePattern(_ context.Context, substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.Contains(k, substr) {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, stale ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
