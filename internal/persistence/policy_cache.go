package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/complaint-service/internal/policy"
)

const policyCacheKey = "policy:current"

// PolicyCache keeps the current policy snapshot in Redis so new instances boot without
// touching Postgres.
type PolicyCache struct {
	redis *Redis
}

// NewPolicyCache builds the cache.
func NewPolicyCache(r *Redis) *PolicyCache {
	return &PolicyCache{redis: r}
}

// Load returns the cached snapshot, or nil without error on a miss.
func (c *PolicyCache) Load(ctx context.Context) (*policy.Snapshot, error) {
	data, err := c.redis.Client.Get(ctx, c.redis.Key(policyCacheKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached policy: %w", err)
	}
	return policy.Decode(data)
}

// Save overwrites the cached snapshot unless the cache already holds a newer version.
func (c *PolicyCache) Save(ctx context.Context, snap *policy.Snapshot) error {
	current, err := c.Load(ctx)
	if err == nil && current != nil && current.Version() > snap.Version() {
		return nil
	}
	data, err := snap.MarshalJSON()
	if err != nil {
		return err
	}
	return c.redis.Client.Set(ctx, c.redis.Key(policyCacheKey), data, 0).Err()
}
