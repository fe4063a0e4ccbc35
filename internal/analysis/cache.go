package analysis

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ablizer/ablizer/internal/stats"
)

type cacheKey struct {
	a, b  stats.Sample
	alpha float64
}

// Cache memoizes calculator results by counts and alpha. Fisher's test on
// large unbalanced tables walks every feasible table, so repeated report
// requests are worth keeping. Cached results are shared and must not be
// modified. A nil *Cache computes every time.
type Cache struct {
	lru    *lru.Cache[cacheKey, *stats.Result]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[cacheKey, *stats.Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Compute returns the cached result for the counts or computes and stores
// it. Rejected inputs are not cached.
func (c *Cache) Compute(a, b stats.Sample, alpha float64) (*stats.Result, error) {
	if c == nil {
		return stats.Compute(a, b, stats.WithAlpha(alpha))
	}

	key := cacheKey{a: a, b: b, alpha: alpha}
	if r, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return r, nil
	}
	c.misses.Add(1)

	r, err := stats.Compute(a, b, stats.WithAlpha(alpha))
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, r)
	return r, nil
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
