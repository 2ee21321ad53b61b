package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/pkg/logging"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

// Resolver serves the redirect path: cache first, store on miss, then the
// cache is repopulated for active mappings only.
//
// Concurrent misses for one code share a single store lookup.
//
// The cache holds the redirect target and not the status, so a code
// deactivated by another request keeps redirecting from cache until its
// entry is invalidated or expires.
type Resolver struct {
	repo         domain.MappingRepository
	cache        domain.Cache
	visits       VisitRecorder
	metrics      metrics.Registry
	cacheTTL     time.Duration
	storeTimeout time.Duration

	loads singleflight.Group
}

func NewResolver(repo domain.MappingRepository, cache domain.Cache, visits VisitRecorder, registry metrics.Registry, cacheTTL, storeTimeout time.Duration) *Resolver {
	return &Resolver{
		repo:         repo,
		cache:        cache,
		visits:       visits,
		metrics:      registry,
		cacheTTL:     cacheTTL,
		storeTimeout: storeTimeout,
	}
}

// Resolve returns the original URL for shortCode. It fails with
// domain.ErrNotFound, domain.ErrInactiveLink, a *domain.StoreError, or the
// context error when the caller's deadline expires before the store answers.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	return r.resolve(ctx, shortCode, true)
}

// Preview resolves like Resolve but records no visit. It serves HEAD
// requests, which link unfurlers send without a person behind them.
func (r *Resolver) Preview(ctx context.Context, shortCode string) (string, error) {
	return r.resolve(ctx, shortCode, false)
}

func (r *Resolver) resolve(ctx context.Context, shortCode string, countVisit bool) (string, error) {
	ctx = logging.With(ctx, "short_code", shortCode)
	logger := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve %s: %w", shortCode, err)
	}

	if originalURL, ok := r.lookupCache(ctx, shortCode); ok {
		if countVisit {
			r.redirect(ctx, shortCode)
		}
		return originalURL, nil
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve %s: %w", shortCode, err)
	}

	mapping, err := r.load(ctx, shortCode)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("resolve %s: %w", shortCode, ctxErr)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("Store lookup failed", "error", err)
		}
		return "", err
	}

	if !mapping.IsActive() {
		logger.Info("Inactive short code requested")
		return "", domain.ErrInactiveLink
	}

	if err := r.cache.Set(ctx, shortCode, mapping.OriginalURL, r.cacheTTL); err != nil {
		r.metrics.IncCacheError("set")
		logger.Warn("Cache repopulate failed", "error", err)
	}

	if countVisit {
		r.redirect(ctx, shortCode)
	}
	return mapping.OriginalURL, nil
}

func (r *Resolver) lookupCache(ctx context.Context, shortCode string) (string, bool) {
	originalURL, err := r.cache.Get(ctx, shortCode)
	switch {
	case err == nil:
		r.metrics.IncCacheLookup(metrics.CacheHit)
		logging.FromContext(ctx).Debug("Cache hit")
		return originalURL, true
	case errors.Is(err, domain.ErrCacheMiss):
		r.metrics.IncCacheLookup(metrics.CacheMiss)
	default:
		r.metrics.IncCacheLookup(metrics.CacheUnavailable)
		r.metrics.IncCacheError("get")
		logging.FromContext(ctx).Warn("Cache lookup failed, falling back to store", "error", err)
	}
	return "", false
}

// load reads the mapping from the store. The shared lookup is detached from
// any single caller and bounded by the store timeout; each caller still
// stops waiting when its own ctx ends.
func (r *Resolver) load(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	ch := r.loads.DoChan(shortCode, func() (any, error) {
		storeCtx, cancel := withTimeout(context.WithoutCancel(ctx), r.storeTimeout)
		defer cancel()
		return r.repo.FindByShortCode(storeCtx, shortCode)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Mapping), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) redirect(ctx context.Context, shortCode string) {
	r.metrics.IncURLsRedirected()
	r.visits.Record(ctx, shortCode)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
