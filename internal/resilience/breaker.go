package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpen is returned by Do when the breaker refuses a call.
var ErrOpen = errors.New("resilience: breaker open")

// State is the breaker position.
type State int

const (
	// Closed passes every call and counts outcomes.
	Closed State = iota
	// Open refuses calls until the cool-off elapses.
	Open
	// HalfOpen lets one trial call through to decide whether to close again.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings tunes a Breaker. Zero values fall back to defaults.
type Settings struct {
	// Target labels metrics and logs, e.g. "redis".
	Target string
	// MinRequests is the sample size required before the failure ratio is evaluated.
	MinRequests int
	// FailureRatio opens the breaker once failures/total reaches it.
	FailureRatio float64
	// OpenFor is the cool-off before a half-open trial call is allowed.
	OpenFor time.Duration
	Logger  *zerolog.Logger
}

// Breaker is a failure-ratio circuit breaker guarding one dependency.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probing   bool
	openedAt  time.Time

	target       string
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker builds a closed breaker.
func NewBreaker(s Settings) *Breaker {
	b := &Breaker{
		state:        Closed,
		target:       strings.TrimSpace(s.Target),
		minRequests:  s.MinRequests,
		failureRatio: s.FailureRatio,
		openFor:      s.OpenFor,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	if b.target == "" {
		b.target = "default"
	}
	if b.minRequests <= 0 {
		b.minRequests = 5
	}
	if b.failureRatio <= 0 || b.failureRatio > 1 {
		b.failureRatio = 0.5
	}
	if b.openFor <= 0 {
		b.openFor = 30 * time.Second
	}
	if s.Logger != nil {
		b.logger = s.Logger.With().Str("breaker", b.target).Logger()
	}
	b.recordState()
	return b
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. After the cool-off an open breaker admits
// a single trial call and moves to half-open; further calls are refused until it reports.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio {
		b.transition(ctx, Open)
		return
	}
	if total > b.minRequests*2 {
		// halve the window so old outcomes fade
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

// Do runs fn when the breaker admits it and reports the result. Context cancellation
// by the caller is not counted as a dependency failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow(ctx) {
		return ErrOpen
	}
	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.mu.Lock()
		b.probing = false
		b.mu.Unlock()
		return err
	}
	b.Report(ctx, err == nil)
	return err
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures = 0
	b.successes = 0
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.recordState()
	recordTransition(b.target, prev, next)

	evt := b.logger.Warn()
	if next == Closed {
		evt = b.logger.Info()
	}
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Str("from_state", prev.String()).Str("to_state", next.String()).Msg("breaker transition")
}

func (b *Breaker) recordState() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.target).Set(stateValue(b.state))
}

func stateValue(s State) float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}
