package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a fixed window limiter kept in process memory. It serves single
// instance deployments that run without Redis.
type MemoryLimiter struct {
	store limiter.Store
}

// NewMemoryLimiter constructs a MemoryLimiter whose keys carry prefix.
func NewMemoryLimiter(prefix string) MemoryLimiter {
	return MemoryLimiter{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Allower.
func (l MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if l.store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	res, err := l.store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(max)})
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
