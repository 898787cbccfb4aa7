package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lifeline/internal/ratelimit/models"
)

const defaultKeyPrefix = "lifeline:rl:"

// fixedWindowScript increments the counter and starts its expiry on the first
// hit, returning the count and remaining TTL in milliseconds.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisBucketStore is a fixed-window limiter shared by every replica.
type RedisBucketStore struct {
	client *redis.Client
	prefix string
}

// NewRedisBucketStore creates a store on client.
func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client, prefix: defaultKeyPrefix}
}

// Allow counts a request against key's current window.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.RateLimitResult, error) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	vals, ok := res.([]any)
	if !ok || len(vals) < 2 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %T", res)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = window.Milliseconds()
	}
	resetAt := now.Add(time.Duration(ttlMs) * time.Millisecond)

	if int(count) > limit {
		return models.Denied(limit, resetAt, now), nil
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
