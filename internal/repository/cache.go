package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// jsonCache stores JSON values in Redis. Read and write failures are logged
// and treated as misses so the database stays the source of truth.
type jsonCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func newJSONCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *jsonCache {
	return &jsonCache{client: client, ttl: ttl, logger: logger.With(zap.String("component", "cache"))}
}

func (c *jsonCache) get(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	c.logger.Debug("cache hit", zap.String("key", key))
	return true
}

func (c *jsonCache) set(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *jsonCache) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// cached loads key from the cache or falls back to load and stores the result.
func cached[T any](ctx context.Context, c *jsonCache, key string, load func() (T, error)) (T, error) {
	var value T
	if c.get(ctx, key, &value) {
		return value, nil
	}
	value, err := load()
	if err != nil {
		return value, err
	}
	c.set(ctx, key, value)
	return value, nil
}
