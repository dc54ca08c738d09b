package process

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached snapshot is reused.
const DefaultCacheTTL = 500 * time.Millisecond

// Cache reuses the most recent snapshot from a source for a short TTL so that
// several consumers polling at once share one enumeration. Snapshots handed
// out by a Cache are shared and must not be released by callers.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
	taken    time.Time
}

// NewCache returns a cache over src. A non-positive ttl uses DefaultCacheTTL.
func NewCache(src Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// Snapshot returns the cached snapshot, capturing a new one when the cached
// one is older than the TTL.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	if c.fresh() {
		s := c.snapshot
		c.mu.RUnlock()
		return s
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh() {
		return c.snapshot
	}

	// Readers may still hold the old snapshot, so it is dropped, not released.
	c.snapshot = Capture(c.src)
	c.taken = c.now()
	return c.snapshot
}

// Invalidate forces the next Snapshot call to capture.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

func (c *Cache) fresh() bool {
	return c.snapshot != nil && !c.snapshot.Released() && c.now().Sub(c.taken) < c.ttl
}
