package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted set per client, scored by attempt time in milliseconds.
// Returns {admitted, count, oldestScore}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. (now - window))
local count = redis.call("ZCARD", key)
if count >= limit then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  return {0, count, tonumber(oldest[2])}
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
local first = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
return {1, count + 1, tonumber(first[2])}
`)

// RedisLimiter implements a sliding-window rate limiter backed by Redis sorted sets,
// so several relay instances share one view of each client.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Check evaluates the window atomically inside Redis.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if l == nil || l.client == nil {
		return Result{}, errors.New("rate limit redis: client not configured")
	}
	if limit <= 0 || window <= 0 {
		return Result{}, nil
	}
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, errEval := slidingWindowScript.Run(ctx, l.client, []string{l.buildKey(key)}, nowMs, windowMs, limit, member).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Result{}, errors.New("rate limit redis: unexpected response type")
	}
	admitted, okAdmitted := toInt64(values[0])
	count, okCount := toInt64(values[1])
	oldest, okOldest := toInt64(values[2])
	if !okAdmitted || !okCount || !okOldest {
		return Result{}, errors.New("rate limit redis: unexpected response values")
	}

	reset := time.UnixMilli(oldest + windowMs).UTC()
	if admitted == 0 {
		return Result{Limited: true, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Limited: false, Remaining: remaining, Reset: reset}, nil
}

// Close releases the underlying client.
func (l *RedisLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
