package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, 400*time.Millisecond, Backoff(base, 3, 0))
	require.Equal(t, base, Backoff(base, 0, 0))

	for i := 0; i < 20; i++ {
		d := Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, 160*time.Millisecond)
		require.LessOrEqual(t, d, 240*time.Millisecond)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	last := errors.New("still down")
	err := Retry(context.Background(), 2, time.Millisecond, func(context.Context, int) error { return last })
	require.ErrorIs(t, err, last)
}

func TestRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
