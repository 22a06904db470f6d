package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis client the limiter needs.
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Drops expired entries, rejects when the window is full, otherwise records
// the request. Returns 1 when allowed.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`

// RedisSlidingWindow is a sliding-window limiter backed by a sorted set per
// key, so every API replica shares the same counts.
type RedisSlidingWindow struct {
	client RedisClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisSlidingWindow(client RedisClient, prefix string, limit int, window time.Duration) *RedisSlidingWindow {
	return &RedisSlidingWindow{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r *RedisSlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	args := []interface{}{
		r.now().UnixMilli(),
		r.window.Milliseconds(),
		r.limit,
		uuid.NewString(),
	}

	allowed, err := r.client.Eval(ctx, slidingWindowScript, []string{r.prefix + key}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("sliding window eval: %w", err)
	}
	return allowed == 1, nil
}

func (r *RedisSlidingWindow) Limit() int {
	return r.limit
}

func (r *RedisSlidingWindow) Window() time.Duration {
	return r.window
}
