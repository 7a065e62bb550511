package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogWritesTotal counts catalog create/update/link outcomes by entity.
	CatalogWritesTotal *prometheus.CounterVec
	// CatalogCacheTotal counts entity cache lookups by outcome.
	CatalogCacheTotal *prometheus.CounterVec
	// CatalogOrphansTotal counts children persisted without being linked to their parent.
	CatalogOrphansTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_writes_total",
			Help:      "Count of catalog write operations by entity, operation and outcome.",
		}, []string{"entity", "operation", "result"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog entity cache lookups by entity and outcome.",
		}, []string{"entity", "result"})
		CatalogOrphansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_orphans_total",
			Help:      "Number of children created whose parent link write failed.",
		}, []string{"entity"})

		mustRegisterCollector(reg, CatalogWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogWritesTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogOrphansTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogOrphansTotal = v
			}
		})
	})
}

// CountCatalogWrite records a write outcome when domain metrics are registered.
func CountCatalogWrite(entity, operation string, err error) {
	if CatalogWritesTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CatalogWritesTotal.WithLabelValues(entity, operation, result).Inc()
}

// CountCatalogCache records a cache lookup outcome when domain metrics are registered.
func CountCatalogCache(entity string, hit bool) {
	if CatalogCacheTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CatalogCacheTotal.WithLabelValues(entity, result).Inc()
}

// CountCatalogOrphan records a child left without a parent link.
func CountCatalogOrphan(entity string) {
	if CatalogOrphansTotal == nil {
		return
	}
	CatalogOrphansTotal.WithLabelValues(entity).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
