package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss means the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable means the cache could not answer in time. It is
	// never surfaced to end users.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Cache holds short code to original URL projections of active mappings.
type Cache interface {
	// Get returns the cached original URL, ErrCacheMiss or ErrCacheUnavailable.
	Get(ctx context.Context, shortCode string) (string, error)

	// Set stores the original URL with the specified TTL
	Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error

	// Delete removes the entry; deleting an absent key is not an error
	Delete(ctx context.Context, shortCode string) error

	// Ping checks if the cache is available
	Ping(ctx context.Context) error

	Close() error
}
