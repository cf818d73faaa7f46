package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores catalog reads. Invalidate drops every cached entry.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Invalidate(ctx context.Context) error
}

const versionKey = "catalog:version"

// RedisCache namespaces entries under a version counter so invalidation is a single INCR.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) key(ctx context.Context, key string) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("catalog:v%d:%s", version, key), nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) bool {
	k, err := c.key(ctx, key)
	if err != nil {
		c.logger.Warn("catalog cache unavailable", "error", err)
		return false
	}
	cached, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", k, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(cached, dst); err != nil {
		c.logger.Warn("catalog cache entry unreadable", "key", k, "error", err)
		return false
	}
	return true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) {
	k, err := c.key(ctx, key)
	if err != nil {
		c.logger.Warn("catalog cache unavailable", "error", err)
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, k, b, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", k, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	version, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return fmt.Errorf("bump catalog cache version: %w", err)
	}
	c.logger.Info("catalog cache invalidated", "version", version)
	return nil
}

// noopCache is used when Redis is not configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool { return false }
func (noopCache) Set(context.Context, string, interface{})      {}
func (noopCache) Invalidate(context.Context) error              { return nil }
