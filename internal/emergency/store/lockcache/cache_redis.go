package lockcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lifeline/internal/emergency/models"
)

const keyPrefix = "lifeline:lock:"

// RedisCache stores lock expiries as unix milliseconds. Keys carry a fixed
// TTL for cleanup only; expiry is still judged against request time.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a cache. A non-positive ttl defaults to 24h.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func key(profileID models.ProfileID) string {
	return keyPrefix + profileID.String()
}

func (c *RedisCache) Get(ctx context.Context, profileID models.ProfileID) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, key(profileID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get lock cache: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode lock cache: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (c *RedisCache) Set(ctx context.Context, profileID models.ProfileID, until time.Time) error {
	if err := c.client.Set(ctx, key(profileID), until.UnixMilli(), c.ttl).Err(); err != nil {
		return fmt.Errorf("set lock cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context, profileID models.ProfileID) error {
	if err := c.client.Del(ctx, key(profileID)).Err(); err != nil {
		return fmt.Errorf("clear lock cache: %w", err)
	}
	return nil
}
