package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WorkRuleCache caches the park's work-rule list behind a TTL. A failed
// refresh falls back to the last good value; only a cache that has never
// been populated propagates the refresh error.
type WorkRuleCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	fetch     func(ctx context.Context) ([]WorkRule, error)
	last      []WorkRule
	fetchedAt time.Time
	primed    bool
}

// NewWorkRuleCache builds a cache over fetch with the given TTL.
func NewWorkRuleCache(fetch func(ctx context.Context) ([]WorkRule, error), ttl time.Duration) *WorkRuleCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &WorkRuleCache{ttl: ttl, fetch: fetch}
}

// Get returns the cached list, refreshing it when the TTL has expired.
func (c *WorkRuleCache) Get(ctx context.Context, now time.Time) ([]WorkRule, error) {
	if c == nil || c.fetch == nil {
		return nil, fmt.Errorf("work rule cache not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.primed && now.Sub(c.fetchedAt) < c.ttl {
		return c.last, nil
	}

	rules, err := c.fetch(ctx)
	if err != nil {
		if c.primed {
			// stale value beats a failed run
			return c.last, nil
		}
		return nil, fmt.Errorf("work rules never fetched: %w", err)
	}

	c.last = rules
	c.fetchedAt = now
	c.primed = true
	return c.last, nil
}
