// Package cache is the per-process Two-level Cache (spec.md §4.2): an
// inscription-id→Details map and a sat-number→inscription-ids map, both with
// the same TTL. It is not shared between replicas; a miss is transparent to
// the caller, which is expected to fall back to the provider adapter.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ordinals-plus/indexer/internal/provider"
)

// defaultSize bounds each map so a long-running worker does not grow the
// cache without bound; eviction beyond this size is LRU, independent of TTL.
const defaultSize = 100_000

// Cache is the two-level cache. The zero value is not usable; construct
// with New.
type Cache struct {
	byInscriptionID *lru.LRU[string, *provider.Details]
	bySat           *lru.LRU[int64, *provider.SatInfo]
}

// New builds a Cache whose entries expire after ttl. The expirable LRU from
// hashicorp/golang-lru runs its own background janitor goroutine to evict
// stale entries, satisfying spec.md's "background sweep" requirement without
// a hand-rolled ticker.
func New(ttl time.Duration) *Cache {
	return &Cache{
		byInscriptionID: lru.NewLRU[string, *provider.Details](defaultSize, nil, ttl),
		bySat:           lru.NewLRU[int64, *provider.SatInfo](defaultSize, nil, ttl),
	}
}

// GetDetails returns the cached Details for an inscription id, if present
// and not expired.
func (c *Cache) GetDetails(id string) (*provider.Details, bool) {
	return c.byInscriptionID.Get(id)
}

// PutDetails caches d under id. Concurrent PutDetails calls for the same id
// during a cache-miss stampede are allowed to race; the last writer wins,
// which matches spec.md's accepted duplicate-upstream-call behaviour.
func (c *Cache) PutDetails(id string, d *provider.Details) {
	c.byInscriptionID.Add(id, d)
}

// GetSatInfo returns the cached SatInfo for a sat number, if present and not
// expired.
func (c *Cache) GetSatInfo(sat int64) (*provider.SatInfo, bool) {
	return c.bySat.Get(sat)
}

// PutSatInfo caches info under sat.
func (c *Cache) PutSatInfo(sat int64, info *provider.SatInfo) {
	c.bySat.Add(sat, info)
}

// Len reports the current entry counts, used by tests and diagnostics.
func (c *Cache) Len() (details int, sats int) {
	return c.byInscriptionID.Len(), c.bySat.Len()
}
