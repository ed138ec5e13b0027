package aiquery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds how often one user may run cross-org templates.
type RateLimiter interface {
	Allow(ctx context.Context, userID string, now time.Time) (allowed bool, used int64, err error)
}

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RedisRateLimiter counts calls per user in fixed hourly windows.
type RedisRateLimiter struct {
	redis *redis.Client
	limit int64
}

func NewRedisRateLimiter(rdb *redis.Client, perHour int64) *RedisRateLimiter {
	return &RedisRateLimiter{redis: rdb, limit: perHour}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, userID string, now time.Time) (bool, int64, error) {
	if r.limit <= 0 {
		return true, 0, nil
	}

	windowStart := now.UTC().Truncate(time.Hour)
	ttl := int64(windowStart.Add(time.Hour).Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("aiquery:crossorg:%s:%s", userID, windowStart.Format("2006010215"))
	used, err := incrWithTTLScript.Run(ctx, r.redis, []string{key}, ttl).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	return used <= r.limit, used, nil
}
