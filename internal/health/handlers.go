package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrDisabled is returned by a Checker for an optional dependency that is not
// configured. It does not fail readiness.
var ErrDisabled = errors.New("disabled")

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles readiness. The server flips it off before draining on shutdown.
func SetReady(v bool) {
	ready.Store(v)
}

// Checker represents dependencies that can be pinged for readiness.
type Checker interface {
	PingStore(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	StoreTimeout time.Duration
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency pings. Only the store gates readiness;
// Redis backs an optional cache and limiter, so an outage is reported as degraded.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil || !ready.Load() {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	storeStatus, storeOK := depStatus(h.Checker.PingStore(ctx, h.storeTimeout()))
	redisStatus, redisOK := depStatus(h.Checker.PingRedis(ctx, h.redisTimeout()))
	if !redisOK {
		redisStatus = "degraded: " + redisStatus
	}
	status := map[string]string{
		"store": storeStatus,
		"redis": redisStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if storeOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func depStatus(err error) (string, bool) {
	switch {
	case err == nil:
		return "ok", true
	case errors.Is(err, ErrDisabled):
		return "disabled", true
	default:
		return err.Error(), false
	}
}

func (h Handler) storeTimeout() time.Duration {
	if h.StoreTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.StoreTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
