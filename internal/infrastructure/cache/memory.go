package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

// MemoryCache is a single-process TTL cache. It suits one replica or tests;
// with several replicas each would invalidate only its own copy.
type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, shortCode string) (string, error) {
	v, ok := c.items.Get(shortCode)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v.(string), nil
}

func (c *MemoryCache) Set(_ context.Context, shortCode, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(shortCode, originalURL, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, shortCode string) error {
	c.items.Delete(shortCode)
	return nil
}

func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}

func (c *MemoryCache) Close() error {
	c.items.Flush()
	return nil
}

// Len reports the number of unexpired entries.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

var _ domain.Cache = (*MemoryCache)(nil)
