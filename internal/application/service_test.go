package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/infrastructure/cache"
	"github.com/priyaranjankumar/linkly/internal/infrastructure/memory"
	"github.com/priyaranjankumar/linkly/internal/pkg/base62"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
)

func TestLinkService_CreateShortURL(t *testing.T) {
	f, _ := newMemoryFixture()
	ctx := context.Background()

	resp, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: "https://example.com/path?q=1"})
	require.NoError(t, err)

	id, err := base62.Decode(resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, id, "short code is derived from the id")

	assert.Equal(t, "https://example.com/path?q=1", resp.OriginalURL)
	assert.Equal(t, domain.StatusActive, resp.Status)
	assert.Zero(t, resp.VisitCount)
	assert.False(t, resp.CreatedAt.IsZero())
	assert.Equal(t, testBaseURL+"/"+resp.ShortCode, resp.ShortURL)
}

func TestLinkService_CreateShortURL_InvalidURLs(t *testing.T) {
	f, _ := newMemoryFixture()

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "not a url", url: "not-a-url"},
		{name: "relative", url: "/just/a/path"},
		{name: "ftp scheme", url: "ftp://example.com/file"},
		{name: "javascript scheme", url: "javascript:alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateShortURL(context.Background(), CreateURLRequest{URL: tt.url})
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}

	list, err := f.service.ListURLs(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list.Links)
}

func TestLinkService_CreateShortURL_WarmsCache(t *testing.T) {
	repo := memory.NewMappingRepository()
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	service := NewLinkService(repo, c, metrics.NewNoOpRegistry(), ServiceConfig{
		BaseURL:      testBaseURL,
		CacheTTL:     time.Hour,
		WarmOnCreate: true,
	})

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{URL: "https://example.com/warm"})
	require.NoError(t, err)

	cached, err := c.Get(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/warm", cached)
}

func TestLinkService_CreateShortURL_CacheDown(t *testing.T) {
	repo := memory.NewMappingRepository()
	service := NewLinkService(repo, &downCache{}, metrics.NewNoOpRegistry(), ServiceConfig{
		BaseURL:      testBaseURL,
		WarmOnCreate: true,
	})

	resp, err := service.CreateShortURL(context.Background(), CreateURLRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ShortCode)
}

func TestLinkService_UpdateStatus(t *testing.T) {
	f, c := newMemoryFixture()
	ctx := context.Background()

	created, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: "https://example.com"})
	require.NoError(t, err)

	for _, status := range []domain.Status{domain.StatusInactive, domain.StatusActive} {
		require.NoError(t, c.Set(ctx, created.ShortCode, "https://stale.example", time.Hour))

		updated, err := f.service.UpdateStatus(ctx, created.ShortCode, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)

		_, err = c.Get(ctx, created.ShortCode)
		assert.ErrorIs(t, err, domain.ErrCacheMiss, "invalidated after change to %s", status)
	}

	_, err = f.service.UpdateStatus(ctx, "missing", domain.StatusInactive)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.UpdateStatus(ctx, created.ShortCode, domain.Status("Paused"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestLinkService_InvalidationIsRetriedOnce(t *testing.T) {
	flaky := &flakyDeleteCache{MemoryCache: cache.NewMemoryCache(time.Hour, time.Minute), failures: 1}
	f := newFixture(flaky)
	ctx := context.Background()

	created, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.NoError(t, flaky.Set(ctx, created.ShortCode, created.OriginalURL, time.Hour))

	_, err = f.service.UpdateStatus(ctx, created.ShortCode, domain.StatusInactive)
	require.NoError(t, err)

	assert.Equal(t, 2, flaky.deletes)
	_, err = flaky.Get(ctx, created.ShortCode)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestLinkService_InvalidationSurvivesCallerCancellation(t *testing.T) {
	c := &ctxCache{MemoryCache: cache.NewMemoryCache(time.Hour, time.Minute)}
	repo := &disconnectingRepository{MappingRepository: memory.NewMappingRepository()}
	registry := metrics.NewNoOpRegistry()
	service := NewLinkService(repo, c, registry, ServiceConfig{
		BaseURL:      testBaseURL,
		CacheTTL:     time.Hour,
		CacheTimeout: 50 * time.Millisecond,
		StoreTimeout: time.Second,
	})
	resolver := NewResolver(repo, c, NewSyncVisitRecorder(repo, registry, time.Second), registry, time.Hour, time.Second)

	created, err := service.CreateShortURL(context.Background(), CreateURLRequest{URL: "https://example.com/a"})
	require.NoError(t, err)

	// Populate the cache through a redirect.
	_, err = resolver.Resolve(context.Background(), created.ShortCode)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	repo.cancel = cancel
	_, err = service.UpdateStatus(ctx, created.ShortCode, domain.StatusInactive)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), created.ShortCode)
	assert.ErrorIs(t, err, domain.ErrInactiveLink)

	_, err = service.UpdateStatus(context.Background(), created.ShortCode, domain.StatusActive)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), created.ShortCode)
	require.NoError(t, err)

	ctx, cancel = context.WithCancel(context.Background())
	repo.cancel = cancel
	require.NoError(t, service.DeleteURL(ctx, created.ShortCode))

	_, err = resolver.Resolve(context.Background(), created.ShortCode)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLinkService_DeleteURL(t *testing.T) {
	f, c := newMemoryFixture()
	ctx := context.Background()

	created, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, created.ShortCode, created.OriginalURL, time.Hour))

	require.NoError(t, f.service.DeleteURL(ctx, created.ShortCode))

	_, err = c.Get(ctx, created.ShortCode)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	assert.ErrorIs(t, f.service.DeleteURL(ctx, created.ShortCode), domain.ErrNotFound)
}

func TestLinkService_DeleteURL_InvalidatesOrphanedEntry(t *testing.T) {
	f, c := newMemoryFixture()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ghost", "https://ghost.example", time.Hour))

	err := f.service.DeleteURL(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Get(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestLinkService_ListURLs(t *testing.T) {
	f, _ := newMemoryFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: fmt.Sprintf("https://example.com/%d", i)})
		require.NoError(t, err)
	}

	list, err := f.service.ListURLs(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, list.Links, 2)
	assert.Equal(t, "https://example.com/4", list.Links[0].OriginalURL)
	assert.Equal(t, "https://example.com/3", list.Links[1].OriginalURL)
	assert.NotEmpty(t, list.Links[0].ShortURL)

	list, err = f.service.ListURLs(ctx, -3, 0)
	require.NoError(t, err)
	assert.Len(t, list.Links, 5)

	list, err = f.service.ListURLs(ctx, 4, 100)
	require.NoError(t, err)
	require.Len(t, list.Links, 1)
	assert.Equal(t, "https://example.com/0", list.Links[0].OriginalURL)
}

func TestLinkService_ListURLs_ClampsLimit(t *testing.T) {
	repo := memory.NewMappingRepository()
	service := NewLinkService(repo, cache.NewNoOpCache(), metrics.NewNoOpRegistry(), ServiceConfig{
		DefaultListLimit: 2,
		MaxListLimit:     3,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.CreateShortURL(ctx, CreateURLRequest{URL: fmt.Sprintf("https://example.com/%d", i)})
		require.NoError(t, err)
	}

	list, err := service.ListURLs(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list.Links, 2)

	list, err = service.ListURLs(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, list.Links, 3)
}

func TestLinkService_GetByOriginalURL(t *testing.T) {
	f, _ := newMemoryFixture()
	ctx := context.Background()

	created, err := f.service.CreateShortURL(ctx, CreateURLRequest{URL: "https://example.com/find-me"})
	require.NoError(t, err)

	found, err := f.service.GetByOriginalURL(ctx, "https://example.com/find-me")
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, found.ShortCode)

	_, err = f.service.GetByOriginalURL(ctx, "https://example.com/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.GetByOriginalURL(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestLinkService_ValidateStatusRequest(t *testing.T) {
	f, _ := newMemoryFixture()

	status, err := f.service.ValidateStatusRequest(UpdateStatusRequest{Status: "Inactive"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, status)

	for _, bad := range []string{"", "inactive", "Deleted"} {
		_, err := f.service.ValidateStatusRequest(UpdateStatusRequest{Status: bad})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus, bad)
		assert.True(t, IsValidationError(err))
	}
}

func TestShortURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://localhost:8080", want: "http://localhost:8080/abc"},
		{base: "http://localhost:8080/", want: "http://localhost:8080/abc"},
		{base: "https://lnk.ly/s/", want: "https://lnk.ly/s/abc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShortURL(tt.base, "abc"))
	}
}
