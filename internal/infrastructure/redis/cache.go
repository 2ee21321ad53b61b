package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

// RedisCache stores original URLs under "<namespace>:<short_code>". Every
// command runs under opTimeout so a slow Redis degrades to a miss quickly.
type RedisCache struct {
	client    *redis.Client
	logger    *slog.Logger
	namespace string
	opTimeout time.Duration
}

func NewRedisCache(client *redis.Client, namespace string, opTimeout time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		logger:    logger,
		namespace: namespace,
		opTimeout: opTimeout,
	}
}

func (c *RedisCache) Get(ctx context.Context, shortCode string) (string, error) {
	key := c.buildKey(shortCode)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		c.logger.Warn("Failed to get from cache", "key", key, "error", err)
		return "", fmt.Errorf("%w: get %s: %v", domain.ErrCacheUnavailable, key, err)
	}

	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	key := c.buildKey(shortCode)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Set(ctx, key, originalURL, ttl).Err(); err != nil {
		c.logger.Warn("Failed to set cache", "key", key, "error", err)
		return fmt.Errorf("%w: set %s: %v", domain.ErrCacheUnavailable, key, err)
	}

	return nil
}

func (c *RedisCache) Delete(ctx context.Context, shortCode string) error {
	key := c.buildKey(shortCode)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to delete from cache", "key", key, "error", err)
		return fmt.Errorf("%w: delete %s: %v", domain.ErrCacheUnavailable, key, err)
	}

	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("Failed to ping Redis", "error", err)
		return fmt.Errorf("%w: ping: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) buildKey(shortCode string) string {
	return fmt.Sprintf("%s:%s", c.namespace, shortCode)
}

func (c *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

var _ domain.Cache = (*RedisCache)(nil)
