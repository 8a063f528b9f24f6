// Package metrics exposes Prometheus counters for the aggregation engine.
// All methods are safe to call on a nil *Metrics, so components can be
// constructed without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider fetch outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeRetry       = "retry"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
)

// Safety drop reasons.
const (
	DropNoURL     = "no_url"
	DropRating    = "rating"
	DropBlocklist = "blocklist"
	DropInvalid   = "invalid_url"
)

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	providerFetches     *prometheus.CounterVec
	recordsDropped      *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	aggregations        *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfetch_provider_fetches_total",
				Help: "Provider page fetch attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		recordsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfetch_records_dropped_total",
				Help: "Records discarded before reaching a result set",
			},
			[]string{"provider", "reason"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfetch_cache_lookups_total",
				Help: "Search cache lookups by result",
			},
			[]string{"result"},
		),
		aggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artfetch_aggregations_total",
				Help: "Full aggregation runs by outcome",
			},
			[]string{"outcome"},
		),
		aggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "artfetch_aggregation_duration_seconds",
				Help:    "Time spent in full aggregation runs",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.providerFetches,
		m.recordsDropped,
		m.cacheLookups,
		m.aggregations,
		m.aggregationDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ProviderFetch counts one page fetch attempt.
func (m *Metrics) ProviderFetch(provider, outcome string) {
	if m == nil {
		return
	}
	m.providerFetches.WithLabelValues(provider, outcome).Inc()
}

// RecordsDropped counts records discarded for reason.
func (m *Metrics) RecordsDropped(provider, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsDropped.WithLabelValues(provider, reason).Add(float64(n))
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Aggregation records a completed aggregation run.
func (m *Metrics) Aggregation(found bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "empty"
	if found {
		outcome = "found"
	}
	m.aggregations.WithLabelValues(outcome).Inc()
	m.aggregationDuration.Observe(elapsed.Seconds())
}
