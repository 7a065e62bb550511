package resilience

import (
	"context"
	"math/rand"
	"time"
)

// Backoff returns the exponential delay before the given attempt (1-based). jitter is a
// fraction of the delay, e.g. 0.2 for +/-20%.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}

// Retry calls fn up to attempts times, sleeping Backoff(base, n, 0.2) between failures.
// It returns the last error, or ctx.Err() if the context ends while waiting.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context, int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for n := 1; n <= attempts; n++ {
		if err = fn(ctx, n); err == nil {
			return nil
		}
		if n == attempts {
			break
		}
		timer := time.NewTimer(Backoff(base, n, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
