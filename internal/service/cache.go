package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is a small get/set/invalidate surface over Redis. Services treat the
// cache as best-effort; a miss or error always falls through to the store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.client.Set(ctx, key, value, ttl)
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// noopCache keeps cache-optional wiring simple when Redis is not configured.
type noopCache struct{}

func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(ctx context.Context, key string) (string, bool)          { return "", false }
func (noopCache) Set(ctx context.Context, key, value string, _ time.Duration) {}
func (noopCache) Delete(ctx context.Context, keys ...string)                  {}
