package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"QueueFM/logger"
	"QueueFM/model"

	"github.com/redis/go-redis/v9"
)

// descriptorKey builds the Redis key for a resolved descriptor.
func descriptorKey(videoID string) string {
	return fmt.Sprintf("video:%s", videoID)
}

// CachedResolver wraps a Client with a Redis descriptor cache so repeated adds
// of the same video skip the API. Cache failures degrade to the inner client.
type CachedResolver struct {
	inner *Client
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedResolver creates a caching resolver around the given client.
func NewCachedResolver(inner *Client, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, redis: rdb, ttl: ttl}
}

// Search passes through to the inner client; queries are not cached.
func (c *CachedResolver) Search(ctx context.Context, query string, limit int) ([]model.VideoDescriptor, error) {
	return c.inner.Search(ctx, query, limit)
}

// Resolve returns a cached descriptor when present, otherwise resolves through
// the inner client and stores the result.
func (c *CachedResolver) Resolve(ctx context.Context, videoID string) (*model.VideoDescriptor, error) {
	key := descriptorKey(videoID)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var d model.VideoDescriptor
		if err := json.Unmarshal(data, &d); err == nil {
			return &d, nil
		}
		logger.Warn("corrupt descriptor cache entry", logger.String("key", key))
	} else if err != redis.Nil {
		logger.Warn("descriptor cache read failed", logger.ErrorField(err))
	}

	d, err := c.inner.Resolve(ctx, videoID)
	if err != nil || d == nil {
		return d, err
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return d, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.Warn("descriptor cache write failed", logger.ErrorField(err))
	}
	return d, nil
}
