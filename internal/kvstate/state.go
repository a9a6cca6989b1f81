// Package kvstate is the Shared-State Manager (spec.md §4.5): every
// interaction with the shared Redis-shaped KV store funnels through this
// package, so no other package ever builds a key string or issues a raw
// Redis command of its own.
package kvstate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ordinals-plus/indexer/config"
	"github.com/ordinals-plus/indexer/internal/log"
)

// ClaimTTL is the lifetime of a batch claim. A claim older than this is
// eligible for reclaiming by any worker, bounding the blast radius of a
// crashed replica.
const ClaimTTL = 3600 * time.Second

// State wraps a Redis client with the exact set of operations the indexer
// needs. Redis.Cmdable is satisfied by both *redis.Client (production) and a
// client pointed at a miniredis instance (tests), so State itself never
// chooses which.
type State struct {
	rdb redis.Cmdable
	log log.Logger
}

// New builds a State from cfg's REDIS_URL.
func New(cfg *config.Config, logger log.Logger) (*State, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return &State{rdb: redis.NewClient(opts), log: logger}, nil
}

// NewWithClient builds a State around an already-constructed client,
// primarily for tests that point at a miniredis instance.
func NewWithClient(rdb redis.Cmdable, logger log.Logger) *State {
	return &State{rdb: rdb, log: logger}
}

// Close releases the underlying connection, if closable.
func (s *State) Close() error {
	if closer, ok := s.rdb.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Cursor returns the current cursor value, or defaultStart-1 if unset (no
// batch has ever completed).
func (s *State) Cursor(ctx context.Context, defaultStart int64) (int64, error) {
	v, err := s.rdb.Get(ctx, keyCursor).Int64()
	if err == redis.Nil {
		return defaultStart - 1, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// AdvanceCursor sets the cursor to newValue unconditionally. Callers are
// responsible for the monotonicity invariant (spec.md §8): this method does
// not itself refuse to move the cursor backwards, since the worker's own
// policy (§4.6) already guarantees it only ever calls this with a
// non-decreasing value.
func (s *State) AdvanceCursor(ctx context.Context, newValue int64) error {
	return s.rdb.Set(ctx, keyCursor, newValue, 0).Err()
}
