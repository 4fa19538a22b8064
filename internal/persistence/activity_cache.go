package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const (
	activityFeedKey   = "activity:feed"
	dashboardStatsKey = "activity:dashboard"
)

// CachedFeed is the last activity feed fetched from the record store.
type CachedFeed struct {
	FetchedAt time.Time              `json:"fetched_at"`
	Entries   []domain.ActivityEntry `json:"entries"`
}

// CachedStats is the last dashboard snapshot fetched from the record store.
type CachedStats struct {
	FetchedAt time.Time             `json:"fetched_at"`
	Stats     domain.DashboardStats `json:"stats"`
}

// ActivityCache holds read-only copies of the activity feed and dashboard counters.
type ActivityCache struct {
	redis *Redis
	ttl   time.Duration
}

// NewActivityCache builds the cache; entries expire after ttl so a dead poller cannot serve
// stale data forever.
func NewActivityCache(r *Redis, ttl time.Duration) *ActivityCache {
	return &ActivityCache{redis: r, ttl: ttl}
}

// StoreFeed replaces the cached feed.
func (c *ActivityCache) StoreFeed(ctx context.Context, feed CachedFeed) error {
	return c.set(ctx, activityFeedKey, feed)
}

// Feed returns the cached feed; ok is false on a miss.
func (c *ActivityCache) Feed(ctx context.Context) (CachedFeed, bool, error) {
	var feed CachedFeed
	ok, err := c.get(ctx, activityFeedKey, &feed)
	return feed, ok, err
}

// StoreStats replaces the cached dashboard counters.
func (c *ActivityCache) StoreStats(ctx context.Context, stats CachedStats) error {
	return c.set(ctx, dashboardStatsKey, stats)
}

// Stats returns the cached dashboard counters; ok is false on a miss.
func (c *ActivityCache) Stats(ctx context.Context) (CachedStats, bool, error) {
	var stats CachedStats
	ok, err := c.get(ctx, dashboardStatsKey, &stats)
	return stats, ok, err
}

func (c *ActivityCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.redis.Client.Set(ctx, c.redis.Key(key), data, c.ttl).Err()
}

func (c *ActivityCache) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.redis.Client.Get(ctx, c.redis.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
