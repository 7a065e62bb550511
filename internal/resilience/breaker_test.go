package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(target string) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(Settings{Target: target, MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Second})
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("recover")

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx), "trial call admitted after cool-off")
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one trial call while half-open")

	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow(ctx))
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestBreaker("reopen")

	b.Report(ctx, false)
	b.Report(ctx, false)
	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker("healthy")
	for i := 0; i < 10; i++ {
		b.Report(ctx, true)
	}
	b.Report(ctx, false)
	require.Equal(t, Closed, b.State())
}

func TestBreakerDo(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker("do")
	boom := errors.New("boom")

	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return boom }), boom)
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return boom }), boom)
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { return nil }), ErrOpen)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b, _ := newTestBreaker("cancel")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_ = b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	}
	require.Equal(t, Closed, b.State())
}

func TestBreakerMetrics(t *testing.T) {
	MustRegisterMetrics("test", prometheus.NewRegistry())
	ctx := context.Background()
	b, clock := newTestBreaker("metrics")

	b.Report(ctx, false)
	b.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics")))

	clock.advance(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics")))
	b.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics")))

	require.Equal(t, 1.0, testutil.ToFloat64(BreakerTransitions.WithLabelValues("metrics", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerTransitions.WithLabelValues("metrics", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerTransitions.WithLabelValues("metrics", "half_open", "closed")))
}
