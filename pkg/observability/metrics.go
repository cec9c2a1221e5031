package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheErrorsTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	// Aggregation metrics
	ComputeDuration    *prometheus.HistogramVec
	ComputeErrorsTotal *prometheus.CounterVec

	// Business metrics
	ActiveUsers prometheus.Gauge
	Guests      prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_cache_hits_total",
				Help: "Total number of aggregate cache hits",
			},
			[]string{"line"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_cache_misses_total",
				Help: "Total number of aggregate cache misses",
			},
			[]string{"line"},
		),
		CacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_cache_errors_total",
				Help: "Total number of cache backend errors",
			},
			[]string{"backend", "op"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_cache_evictions_total",
				Help: "Total number of entries removed by the cache backend",
			},
			[]string{"backend"},
		),

		ComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activity_compute_duration_seconds",
				Help:    "Aggregate computation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"line"},
		),
		ComputeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_compute_errors_total",
				Help: "Total number of failed aggregate computations",
			},
			[]string{"line", "kind"},
		),

		ActiveUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activity_active_users",
				Help: "Users active in the trailing 24 hours",
			},
		),
		Guests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "activity_guests",
				Help: "Distinct guests in the trailing 24 hours",
			},
		),
	}

	registry.MustRegister(
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheErrorsTotal,
		m.CacheEvictionsTotal,
		m.ComputeDuration,
		m.ComputeErrorsTotal,
		m.ActiveUsers,
		m.Guests,
	)

	return m
}

// RecordCacheHit records a cache hit for line
func (m *Metrics) RecordCacheHit(line string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(line).Inc()
}

// RecordCacheMiss records a cache miss for line
func (m *Metrics) RecordCacheMiss(line string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(line).Inc()
}

// RecordCacheError records a failed backend operation
func (m *Metrics) RecordCacheError(backend, op string) {
	if m == nil {
		return
	}
	m.CacheErrorsTotal.WithLabelValues(backend, op).Inc()
}

// RecordCacheEviction records an entry removed by a backend
func (m *Metrics) RecordCacheEviction(backend string) {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.WithLabelValues(backend).Inc()
}

// ObserveCompute records how long computing line took
func (m *Metrics) ObserveCompute(line string, d time.Duration) {
	if m == nil {
		return
	}
	m.ComputeDuration.WithLabelValues(line).Observe(d.Seconds())
}

// RecordComputeError records a failed computation of line
func (m *Metrics) RecordComputeError(line, kind string) {
	if m == nil {
		return
	}
	m.ComputeErrorsTotal.WithLabelValues(line, kind).Inc()
}

// SetActiveUsers updates the active users gauge
func (m *Metrics) SetActiveUsers(n int) {
	if m == nil {
		return
	}
	m.ActiveUsers.Set(float64(n))
}

// SetGuests updates the guests gauge
func (m *Metrics) SetGuests(n int64) {
	if m == nil {
		return
	}
	m.Guests.Set(float64(n))
}
