package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys of the menu API.
const DefaultPrefix = "menu:ratelimit:"

var (
	_ Allower = Limiter{}
	_ Allower = MemoryLimiter{}
)

// slidingWindow trims events older than the window, records the new event only when it
// fits, and returns {allowed, count, oldest event ms}. Refused events are not recorded so
// a client hammering a closed window does not extend its own ban.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < max then
  redis.call("ZADD", key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", key, window)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {allowed, count, first}
`)

// Limiter is a sliding window limiter shared by every instance through Redis sorted sets.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow implements Allower. The reset time is when the oldest event in the window expires.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	res, err := slidingWindow.Run(ctx, l.Client, []string{prefix + key},
		now.UnixMilli(), windowMs, max, fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	if len(res) != 3 {
		return false, 0, now.Add(window), fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	remaining := max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return res[0] == 1, remaining, time.UnixMilli(res[2] + windowMs), nil
}
