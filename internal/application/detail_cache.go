package application

import (
	"context"
	"sync"
	"time"
)

// VisitDetailCache stores visit detail snapshots between mutations. Lookups
// that miss or fail fall through to the remote API.
type VisitDetailCache interface {
	GetVisitDetail(ctx context.Context, id int64) (VisitDetail, bool)
	StoreVisitDetail(ctx context.Context, detail VisitDetail)
	InvalidateVisit(ctx context.Context, id int64)
}

// memoryDetailCache is the in-process VisitDetailCache used when no shared
// cache is configured.
type memoryDetailCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[int64]detailCacheEntry
}

type detailCacheEntry struct {
	detail    VisitDetail
	expiresAt time.Time
}

// NewMemoryDetailCache returns an in-process cache bounded to maxEntries.
func NewMemoryDetailCache(ttl time.Duration, maxEntries int, now func() time.Time) VisitDetailCache {
	return newMemoryDetailCache(ttl, maxEntries, now)
}

func newMemoryDetailCache(ttl time.Duration, maxEntries int, now func() time.Time) *memoryDetailCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &memoryDetailCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[int64]detailCacheEntry),
	}
}

func (c *memoryDetailCache) GetVisitDetail(_ context.Context, id int64) (VisitDetail, bool) {
	if c == nil {
		return VisitDetail{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return VisitDetail{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return VisitDetail{}, false
	}
	return cloneVisitDetail(entry.detail), true
}

func (c *memoryDetailCache) StoreVisitDetail(_ context.Context, detail VisitDetail) {
	if c == nil || detail.Visit.ID == 0 {
		return
	}
	cloned := cloneVisitDetail(detail)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[detail.Visit.ID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[detail.Visit.ID] = detailCacheEntry{detail: cloned, expiresAt: expiry}
}

func (c *memoryDetailCache) InvalidateVisit(_ context.Context, id int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

func (c *memoryDetailCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *memoryDetailCache) evictOneLocked() {
	var oldestKey int64
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.expiresAt.Before(oldest) {
			oldestKey, oldest, first = key, entry.expiresAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

func cloneVisitDetail(detail VisitDetail) VisitDetail {
	out := detail
	if detail.Visit.Registration != nil {
		reg := *detail.Visit.Registration
		out.Visit.Registration = &reg
	}
	return out
}
