package redis

import (
	"context"
	"errors"
	"time"

	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS CACHE
// Implements event.PointsCache: a per-candidate total with a TTL backstop.
// The cache is invalidated on every ledger mutation, so the TTL only bounds
// staleness when an invalidation is lost.
// ══════════════════════════════════════════════════════════════════════════════

// PointsCache caches candidate point totals in Redis.
type PointsCache struct {
	cache *Cache
}

// NewPointsCache creates a new PointsCache.
func NewPointsCache(cache *Cache) *PointsCache {
	return &PointsCache{cache: cache}
}

func pointsKey(candidateID shared.CandidateID) string {
	return PrefixPoints + candidateID.String()
}

// Get returns the cached total, or shared.ErrNotFound on a miss.
func (c *PointsCache) Get(ctx context.Context, candidateID shared.CandidateID) (shared.Points, error) {
	var total int
	err := c.cache.Get(ctx, pointsKey(candidateID), &total)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return shared.Points(total), nil
}

// Set stores the total with a TTL.
func (c *PointsCache) Set(ctx context.Context, candidateID shared.CandidateID, total shared.Points, ttl time.Duration) error {
	return c.cache.Set(ctx, pointsKey(candidateID), total.Int(), ttl)
}

// Invalidate drops the cached total for a candidate.
func (c *PointsCache) Invalidate(ctx context.Context, candidateID shared.CandidateID) error {
	return c.cache.Delete(ctx, pointsKey(candidateID))
}
