package resilience

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// BreakerState reports the current position per target: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state changes per target.
	BreakerTransitions *prometheus.CounterVec
)

// MustRegisterMetrics creates and registers the breaker collectors. Breakers built
// before registration do not report.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
		}, []string{"target"})
		transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Count of breaker state transitions.",
		}, []string{"target", "from", "to"})

		BreakerState = register(reg, state).(*prometheus.GaugeVec)
		BreakerTransitions = register(reg, transitions).(*prometheus.CounterVec)
	})
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(fmt.Errorf("register breaker metric: %w", err))
	}
	return c
}

func recordTransition(target string, from, to State) {
	if BreakerTransitions == nil {
		return
	}
	BreakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
}
