package idempotency

import (
	"context"
	"time"

	"marketplace/internal/cache"
	"marketplace/internal/errors"
)

const (
	lockSuffix = ":lock"
	dataSuffix = ":data"
	lockTTL    = 10 * time.Second   // how long a running request blocks retries
	dataTTL    = 24 * 7 * time.Hour // how long a finished response is replayable
)

// RedisStore keeps per-key locks and finished responses in Redis.
type RedisStore struct {
	cache *cache.RedisClient
}

func NewRedisStore(c *cache.RedisClient) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) SaveResponse(ctx context.Context, key string, resp StoredResponse) error {
	if err := cache.Set(s.cache, ctx, key+dataSuffix, resp, dataTTL); err != nil {
		return errors.New(errors.ErrInternal, "Internal error. Please contact support.", err)
	}

	// Drop the lock so waiting retries read the data instead of conflicting.
	// If the data is saved, a failed lock delete just means a slower replay.
	_ = cache.Del(s.cache, ctx, key+lockSuffix)

	return nil
}

func (s *RedisStore) GetResponse(ctx context.Context, key string) (*StoredResponse, bool, error) {
	return cache.Get[StoredResponse](s.cache, ctx, key+dataSuffix)
}

func (s *RedisStore) Lock(ctx context.Context, key string) (bool, error) {
	// A finished response counts as a failed lock: the middleware then falls
	// through to the replay path.
	_, found, err := s.GetResponse(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	return cache.SetNX(s.cache, ctx, key+lockSuffix, "1", lockTTL)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_ = cache.Del(s.cache, ctx, key+lockSuffix)
	_ = cache.Del(s.cache, ctx, key+dataSuffix)
	return nil
}
