// Package lock serialises work across processes with a Redis key.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the wait budget elapses while another holder owns the key.
var ErrNotAcquired = errors.New("lock: not acquired")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Mutex is a single-key Redis lock. The key expires after TTL so a crashed holder
// cannot block others forever.
type Mutex struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	// Wait bounds how long Run polls for the key; zero means until ctx ends.
	Wait time.Duration
	Poll time.Duration
}

// Run calls fn while holding the key and releases it afterwards, whatever fn returns.
// Release only deletes the key if this caller still owns it.
func (m Mutex) Run(ctx context.Context, fn func(context.Context) error) error {
	if m.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	if m.Key == "" {
		return errors.New("lock: key is empty")
	}
	ttl := m.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	poll := m.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	acquireCtx := ctx
	if m.Wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.Wait)
		defer cancel()
	}

	token := uuid.NewString()
	for {
		ok, err := m.Client.SetNX(acquireCtx, m.Key, token, ttl).Result()
		if err != nil {
			if acquireCtx.Err() != nil && ctx.Err() == nil {
				return ErrNotAcquired
			}
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(poll)
		select {
		case <-acquireCtx.Done():
			timer.Stop()
			if ctx.Err() == nil {
				return ErrNotAcquired
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, m.Client, []string{m.Key}, token).Err()
	}()
	return fn(ctx)
}
