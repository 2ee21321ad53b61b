//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyaranjankumar/linkly/internal/application"
	"github.com/priyaranjankumar/linkly/internal/domain"
	redisCache "github.com/priyaranjankumar/linkly/internal/infrastructure/redis"
	"github.com/priyaranjankumar/linkly/internal/pkg/base62"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

func TestCreateAndResolve(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	resp, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/path?q=1"})
	require.NoError(t, err)

	code, err := base62.Encode(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, code, resp.ShortCode)
	assert.Equal(t, testBaseURL+"/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, domain.StatusActive, resp.Status)

	target, err := env.Resolver.Resolve(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/path?q=1", target)

	mapping, err := env.Repo.FindByShortCode(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mapping.VisitCount)
}

func TestSequentialCodes(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	first, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/a"})
	require.NoError(t, err)
	second, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/a"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "1", first.ShortCode)
	assert.Equal(t, int64(2), second.ID)
	assert.NotEqual(t, first.ShortCode, second.ShortCode)

	found, err := env.Service.GetByOriginalURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, second.ShortCode, found.ShortCode)
}

func TestCacheBehavior(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	resp, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/cached"})
	require.NoError(t, err)

	t.Run("miss populates cache", func(t *testing.T) {
		_, err := env.RedisClient.Get(ctx, cacheKey(resp.ShortCode)).Result()
		assert.ErrorIs(t, err, goredis.Nil)

		_, err = env.Resolver.Resolve(ctx, resp.ShortCode)
		require.NoError(t, err)

		cached, err := env.RedisClient.Get(ctx, cacheKey(resp.ShortCode)).Result()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/cached", cached)

		ttl, err := env.RedisClient.TTL(ctx, cacheKey(resp.ShortCode)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("deactivate invalidates entry", func(t *testing.T) {
		_, err := env.Service.UpdateStatus(ctx, resp.ShortCode, domain.StatusInactive)
		require.NoError(t, err)

		_, err = env.RedisClient.Get(ctx, cacheKey(resp.ShortCode)).Result()
		assert.ErrorIs(t, err, goredis.Nil)

		_, err = env.Resolver.Resolve(ctx, resp.ShortCode)
		assert.ErrorIs(t, err, domain.ErrInactiveLink)

		// inactive mappings are never cached
		_, err = env.RedisClient.Get(ctx, cacheKey(resp.ShortCode)).Result()
		assert.ErrorIs(t, err, goredis.Nil)
	})

	t.Run("reactivate restores redirect", func(t *testing.T) {
		_, err := env.Service.UpdateStatus(ctx, resp.ShortCode, domain.StatusActive)
		require.NoError(t, err)

		target, err := env.Resolver.Resolve(ctx, resp.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/cached", target)
	})

	t.Run("delete invalidates entry", func(t *testing.T) {
		require.NoError(t, env.Service.DeleteURL(ctx, resp.ShortCode))

		_, err := env.RedisClient.Get(ctx, cacheKey(resp.ShortCode)).Result()
		assert.ErrorIs(t, err, goredis.Nil)

		_, err = env.Resolver.Resolve(ctx, resp.ShortCode)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.ErrorIs(t, env.Service.DeleteURL(ctx, resp.ShortCode), domain.ErrNotFound)
	})
}

func TestUnknownCodeIsNotCached(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	_, err := env.Resolver.Resolve(ctx, "doesnotexist123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := env.RedisClient.Exists(ctx, cacheKey("doesnotexist123")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentVisits(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	resp, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/popular"})
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Resolver.Resolve(ctx, resp.ShortCode)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mapping, err := env.Repo.FindByShortCode(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(n), mapping.VisitCount)
}

func TestResolveWithUnreachableCache(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	resp, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: "https://example.com/failopen"})
	require.NoError(t, err)

	client := redisCache.NewClient(redisCache.Options{Addr: "127.0.0.1:1", OpTimeout: 50 * time.Millisecond})
	defer client.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := metrics.NewNoOpRegistry()
	down := redisCache.NewRedisCache(client, testNamespace, 50*time.Millisecond, logger)
	resolver := application.NewResolver(env.Repo, down,
		application.NewSyncVisitRecorder(env.Repo, registry, 2*time.Second),
		registry, time.Hour, 2*time.Second)

	target, err := resolver.Resolve(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/failopen", target)

	mapping, err := env.Repo.FindByShortCode(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mapping.VisitCount)
}

func TestDuplicateShortCodeIsStoreError(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	fixed := func(int64) (string, error) { return "dup", nil }

	_, err := env.Repo.Create(ctx, "https://example.com/one", fixed)
	require.NoError(t, err)

	_, err = env.Repo.Create(ctx, "https://example.com/two", fixed)
	require.Error(t, err)

	var storeErr *domain.StoreError
	assert.ErrorAs(t, err, &storeErr)

	// the failed create rolled back its pending row
	list, err := env.Repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	var rows int
	require.NoError(t, env.DB.Get(&rows, "SELECT COUNT(*) FROM url_mappings"))
	assert.Equal(t, 1, rows)
}

func TestListOrdering(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := env.Service.CreateShortURL(ctx, application.CreateURLRequest{URL: u})
		require.NoError(t, err)
	}

	page, err := env.Service.ListURLs(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Links, 2)
	assert.Equal(t, "https://c.example", page.Links[0].OriginalURL)
	assert.Equal(t, "https://b.example", page.Links[1].OriginalURL)

	page, err = env.Service.ListURLs(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Links, 1)
	assert.Equal(t, "https://a.example", page.Links[0].OriginalURL)
}
