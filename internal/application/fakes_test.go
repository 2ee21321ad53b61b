package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/infrastructure/cache"
	"github.com/priyaranjankumar/linkly/internal/infrastructure/memory"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

const testBaseURL = "http://localhost:8080"

// countingRepository counts store lookups on top of the in-memory store.
type countingRepository struct {
	*memory.MappingRepository
	finds atomic.Int64
}

func (r *countingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	r.finds.Add(1)
	return r.MappingRepository.FindByShortCode(ctx, shortCode)
}

// downCache fails every call the way an unreachable Redis does.
type downCache struct {
	calls atomic.Int64
}

func (c *downCache) fail(op string) error {
	c.calls.Add(1)
	return fmt.Errorf("%w: %s: connection refused", domain.ErrCacheUnavailable, op)
}

func (c *downCache) Get(context.Context, string) (string, error) { return "", c.fail("get") }
func (c *downCache) Set(context.Context, string, string, time.Duration) error {
	return c.fail("set")
}
func (c *downCache) Delete(context.Context, string) error { return c.fail("delete") }
func (c *downCache) Ping(context.Context) error           { return c.fail("ping") }
func (c *downCache) Close() error                         { return nil }

// flakyDeleteCache fails the first Delete and then behaves normally.
type flakyDeleteCache struct {
	*cache.MemoryCache
	mu       sync.Mutex
	failures int
	deletes  int
}

func (c *flakyDeleteCache) Delete(ctx context.Context, shortCode string) error {
	c.mu.Lock()
	c.deletes++
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()

	if fail {
		return fmt.Errorf("%w: delete: timeout", domain.ErrCacheUnavailable)
	}
	return c.MemoryCache.Delete(ctx, shortCode)
}

type fixture struct {
	repo     *countingRepository
	cache    domain.Cache
	service  *LinkService
	resolver *Resolver
}

func newFixture(c domain.Cache) *fixture {
	repo := &countingRepository{MappingRepository: memory.NewMappingRepository()}
	registry := metrics.NewNoOpRegistry()
	visits := NewSyncVisitRecorder(repo, registry, time.Second)

	return &fixture{
		repo:  repo,
		cache: c,
		service: NewLinkService(repo, c, registry, ServiceConfig{
			BaseURL:          testBaseURL,
			CacheTTL:         time.Hour,
			CacheTimeout:     50 * time.Millisecond,
			StoreTimeout:     time.Second,
			DefaultListLimit: 100,
			MaxListLimit:     500,
		}),
		resolver: NewResolver(repo, c, visits, registry, time.Hour, time.Second),
	}
}

func newMemoryFixture() (*fixture, *cache.MemoryCache) {
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	return newFixture(c), c
}

// gatedRepository holds every store lookup until release is closed.
type gatedRepository struct {
	*countingRepository
	release chan struct{}
}

func (r *gatedRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	r.finds.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.MappingRepository.FindByShortCode(ctx, shortCode)
}

// ctxCache honours cancellation on every call the way the Redis adapter does.
type ctxCache struct {
	*cache.MemoryCache
}

func (c *ctxCache) Get(ctx context.Context, shortCode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return c.MemoryCache.Get(ctx, shortCode)
}

func (c *ctxCache) Delete(ctx context.Context, shortCode string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return c.MemoryCache.Delete(ctx, shortCode)
}

// disconnectingRepository cancels the request right after a write commits,
// like a client hanging up before the response is sent.
type disconnectingRepository struct {
	*memory.MappingRepository
	cancel context.CancelFunc
}

func (r *disconnectingRepository) SetStatus(ctx context.Context, shortCode string, status domain.Status) (*domain.Mapping, error) {
	m, err := r.MappingRepository.SetStatus(ctx, shortCode, status)
	r.cancel()
	return m, err
}

func (r *disconnectingRepository) Delete(ctx context.Context, shortCode string) (bool, error) {
	removed, err := r.MappingRepository.Delete(ctx, shortCode)
	r.cancel()
	return removed, err
}
