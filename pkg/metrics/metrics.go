// Package metrics exposes Prometheus collectors for the mapping cache and
// transform operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricCacheLookupsTotal       = "unify_mapping_cache_lookups_total"
	MetricCacheInvalidationsTotal = "unify_mapping_cache_invalidations_total"
	MetricTransformsTotal         = "unify_transforms_total"
	MetricTransformDuration       = "unify_transform_duration_seconds"
)

// Cache lookup results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Transform outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	cacheLookups       *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	transforms         *prometheus.CounterVec
	transformDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCacheLookupsTotal,
			Help: "Resolved-mapping cache lookups by result.",
		}, []string{"result"}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCacheInvalidationsTotal,
			Help: "Resolved-mapping cache invalidations by scope.",
		}, []string{"scope"}),
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricTransformsTotal,
			Help: "Unify and disunify operations by provider and outcome.",
		}, []string{"operation", "provider", "outcome"}),
		transformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricTransformDuration,
			Help:    "Transform latency in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.cacheLookups, m.cacheInvalidations, m.transforms, m.transformDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheInvalidated records an invalidation; scope is "account" or "all".
func (m *Metrics) CacheInvalidated(scope string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.WithLabelValues(scope).Inc()
}

// Transform records one unify or disunify call.
func (m *Metrics) Transform(operation, provider string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.transforms.WithLabelValues(operation, provider, outcome).Inc()
	m.transformDuration.WithLabelValues(operation).Observe(seconds)
}
