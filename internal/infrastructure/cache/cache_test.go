package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyaranjankumar/linkly/internal/domain"
)

func TestNoOpCache_AlwaysMisses(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", "https://example.com", time.Minute))

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "abc"))
	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "abc", "https://example.com", time.Minute))
	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "abc"))
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	// deleting an absent key is fine
	assert.NoError(t, c.Delete(ctx, "abc"))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", "https://example.com", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}
