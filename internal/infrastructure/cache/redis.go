package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the CacheStore port with a shared Redis instance so cache
// entries (and the post-commit feedback patches) are visible to every
// gateway replica. Patch is read-modify-write; concurrent patches of the
// same key are last-write-wins, matching the cache's overall semantics.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "ethioguide"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Patch(ctx context.Context, key string, apply func(current []byte) ([]byte, error)) (bool, error) {
	storageKey := r.key(key)
	current, err := r.client.Get(ctx, storageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get for patch: %w", err)
	}

	next, err := apply(current)
	if err != nil {
		return false, err
	}
	if err := r.client.Set(ctx, storageKey, next, redis.KeepTTL).Err(); err != nil {
		return false, fmt.Errorf("redis set patched value: %w", err)
	}
	return true, nil
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	storageKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		storageKeys = append(storageKeys, r.key(key))
	}
	if err := r.client.Del(ctx, storageKeys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}
