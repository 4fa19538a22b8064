package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/policy"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	r := NewRedisWithClient(client, "test")
	t.Cleanup(r.Close)
	return r, s
}

func TestPolicyCache_MissThenHit(t *testing.T) {
	r, s := setupTestRedis(t)
	cache := NewPolicyCache(r)
	ctx := context.Background()

	snap, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	next, err := policy.Default().WithPermissions(domain.RoleForeman, policy.ResourceUsers, policy.Permissions{Read: true}, "admin-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, next))
	assert.True(t, s.Exists("test:policy:current"))

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, next.Document(), loaded.Document())
}

func TestPolicyCache_KeepsNewerVersion(t *testing.T) {
	r, _ := setupTestRedis(t)
	cache := NewPolicyCache(r)
	ctx := context.Background()

	v2, err := policy.Default().WithPermissions(domain.RoleForeman, policy.ResourceUsers, policy.Permissions{Read: true}, "admin-1", time.Now())
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, v2))
	require.NoError(t, cache.Save(ctx, policy.Default()))

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version())
}

func TestPolicyCache_CorruptValue(t *testing.T) {
	r, s := setupTestRedis(t)
	require.NoError(t, s.Set("test:policy:current", "{not json"))
	_, err := NewPolicyCache(r).Load(context.Background())
	assert.Error(t, err)
}

func TestActivityCache_RoundTripAndExpiry(t *testing.T) {
	r, s := setupTestRedis(t)
	cache := NewActivityCache(r, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Feed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fetched := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	feed := CachedFeed{FetchedAt: fetched, Entries: []domain.ActivityEntry{{ID: "a-1", Action: "createComplaint", OccurredAt: fetched}}}
	require.NoError(t, cache.StoreFeed(ctx, feed))
	require.NoError(t, cache.StoreStats(ctx, CachedStats{FetchedAt: fetched, Stats: domain.DashboardStats{"open": 3.0}}))

	got, ok, err := cache.Feed(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, feed, got)

	stats, ok, err := cache.Stats(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, stats.Stats["open"])

	s.FastForward(2 * time.Minute)
	_, ok, err = cache.Feed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
