package session

import (
	"time"

	"rentals/internal/cache"
	"rentals/internal/core"
)

// newCacheAt rebuilds the store cache so tests can move time forward for
// both the store and the cache entries it sets.
func newCacheAt(s *Store, now *time.Time) *cache.LRUCache[core.Session] {
	s.now = func() time.Time { return *now }
	return cache.NewLRUCacheWithClock[core.Session](10, s.ttl, s.now)
}
