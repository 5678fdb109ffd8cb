package presence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamwatch/report-service/internal/trends"
)

const trendingCacheKey = "presence:trending"

// TrendingCache keeps the last successful trending batch in Redis so a
// restart does not lose it between refresh ticks. All operations are best
// effort; callers treat errors as a cache miss.
type TrendingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrendingCache builds the cache. The TTL should cover at least one
// refresh window so a stale batch is never served past a refresh cycle.
func NewTrendingCache(client *redis.Client, ttl time.Duration) *TrendingCache {
	return &TrendingCache{client: client, ttl: ttl}
}

// Save stores the batch.
func (c *TrendingCache) Save(ctx context.Context, batch trends.FetchedBatch) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, trendingCacheKey, raw, c.ttl).Err()
}

// Load returns the cached batch, or nil when none is stored.
func (c *TrendingCache) Load(ctx context.Context) (*trends.FetchedBatch, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, trendingCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var batch trends.FetchedBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}
