package analytics

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheBumpStartsNewGeneration(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	first, err := cache.ReportKey(ctx, Scope{}, Filter{Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "parcelhub:analytics:report:v1:org:"), first)

	require.NoError(t, cache.Bump(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)

	second, err := cache.ReportKey(ctx, Scope{}, Filter{Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCacheKeysSeparateScopesAndFilters(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	org, err := cache.ReportKey(ctx, Scope{}, Filter{Page: 1})
	require.NoError(t, err)
	branch, err := cache.ReportKey(ctx, Scope{OfficeID: "jakarta-hub"}, Filter{Page: 1})
	require.NoError(t, err)
	page2, err := cache.ReportKey(ctx, Scope{}, Filter{Page: 2})
	require.NoError(t, err)

	assert.Contains(t, branch, ":jakarta-hub:")
	assert.NotEqual(t, org, branch)
	assert.NotEqual(t, org, page2)
}

func TestCacheGetPut(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	report := Report{Summary: Summary{Totals: Totals{Count: 3, Revenue: "150000.00"}}, Data: []Row{}}
	require.NoError(t, cache.Put(ctx, "k", report))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Summary.Count)
	assert.Equal(t, "150000.00", got.Summary.Revenue)

	require.NoError(t, mr.Set("k", "{not json"))
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.Put(ctx, "k", Report{}))

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
