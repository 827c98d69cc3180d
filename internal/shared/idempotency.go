package shared

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore records processed keys per module in Redis.
type IdempotencyStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewIdempotencyStore constructs the store. Keys expire after retention; zero
// keeps them forever.
func NewIdempotencyStore(client *redis.Client, retention time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, retention: retention}
}

// Acquire claims key within module. It reports false when the key was already
// claimed by an earlier call.
func (s *IdempotencyStore) Acquire(ctx context.Context, module, key string) (bool, error) {
	if s == nil || s.client == nil {
		return false, errors.New("idempotency store not initialised")
	}
	if key == "" {
		return false, errors.New("idempotency key required")
	}
	if module == "" {
		return false, errors.New("idempotency module required")
	}
	return s.client.SetNX(ctx, s.redisKey(module, key), time.Now().UTC().Format(time.RFC3339Nano), s.retention).Result()
}

// Release removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Release(ctx context.Context, module, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return s.client.Del(ctx, s.redisKey(module, key)).Err()
}

func (s *IdempotencyStore) redisKey(module, key string) string {
	return "idempotency:" + module + ":" + key
}
