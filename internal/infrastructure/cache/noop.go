package cache

import (
	"context"
	"time"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

// NoOpCache is a no-operation cache implementation that does nothing
// Used when caching is disabled
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(_ context.Context, _ string) (string, error) {
	return "", domain.ErrCacheMiss
}

func (c *NoOpCache) Set(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func (c *NoOpCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (c *NoOpCache) Ping(_ context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

var _ domain.Cache = (*NoOpCache)(nil)
