// Entity cache store backed by Redis. Entries are JSON documents written with
// a physical TTL matching their logical expiry.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"glide/internal/types"
)

const cacheKeyPrefix = "risk:entity:%s"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func cacheKey(id types.ID) string {
	return fmt.Sprintf(cacheKeyPrefix, string(id))
}

func (s *Store) Get(ctx context.Context, id types.ID) (CachedPrediction, error) {
	val, err := s.redis.Get(ctx, cacheKey(id)).Result()
	if err == redis.Nil {
		return CachedPrediction{}, ErrNotCached
	}
	if err != nil {
		return CachedPrediction{}, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	var p CachedPrediction
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		// A corrupt entry is indistinguishable from a missing one to callers.
		return CachedPrediction{}, ErrNotCached
	}
	return p, nil
}

func (s *Store) Set(ctx context.Context, p CachedPrediction) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("cached prediction for %s already expired", p.EntityID)
	}
	if err := s.redis.Set(ctx, cacheKey(p.EntityID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
