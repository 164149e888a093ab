// Package metrics provides Prometheus metrics for the ranked service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch latencies are dominated by the provider round trip, so they get
// their own coarser buckets.
var defaultFetchBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the ranked service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	fetchBuckets     []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Rehydration
	fetchDuration   *prometheus.HistogramVec
	fetchErrors     *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	rankingSize     *prometheus.GaugeVec
	lastSwapUnix    *prometheus.GaugeVec
	passDuration    prometheus.Histogram
	passes          *prometheus.CounterVec
	loopAlive       prometheus.Gauge

	// Query path
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	queryResults        *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure rebuilds the global manager from opts on a fresh custom registry.
// Call it before serving /metrics; handlers built earlier keep the old registry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ranked",
		subsystem:        "cache",
		histogramBuckets: prometheus.DefBuckets,
		fetchBuckets:     defaultFetchBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric family
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.fetchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "provider_fetch_duration_seconds",
		Help:        "Latency of provider fetches by attribution kind and time range",
		Buckets:     m.fetchBuckets,
		ConstLabels: labels,
	}, []string{"kind", "time_range"})

	m.fetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "provider_fetch_errors_total",
		Help:        "Failed refreshes by attribution kind, time range and reason",
		ConstLabels: labels,
	}, []string{"kind", "time_range", "reason"})

	m.rebuildDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_rebuild_duration_seconds",
		Help:        "Time spent sorting and ranking a fetched record set",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"kind"})

	m.rankingSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_size",
		Help:        "Number of ranked players in the current snapshot",
		ConstLabels: labels,
	}, []string{"kind", "time_range"})

	m.lastSwapUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_last_swap_unix",
		Help:        "Unix time of the last successful snapshot swap",
		ConstLabels: labels,
	}, []string{"kind", "time_range"})

	m.passDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rehydrate_pass_duration_seconds",
		Help:        "Duration of a full rehydration pass over every kind and time range",
		Buckets:     m.fetchBuckets,
		ConstLabels: labels,
	})

	m.passes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rehydrate_passes_total",
		Help:        "Completed rehydration passes by result (ok, partial)",
		ConstLabels: labels,
	}, []string{"result"})

	m.loopAlive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rehydrate_loop_alive",
		Help:        "1 while the rehydration loop is running",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.queryResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queries_total",
		Help:        "Ranking queries by attribution kind, time range and outcome (hit, miss, empty)",
		ConstLabels: labels,
	}, []string{"kind", "time_range", "outcome"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Total number of errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
}

// RecordFetch observes the latency of one provider fetch.
func (m *Manager) RecordFetch(kind, timeRange string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.fetchDuration.WithLabelValues(kind, timeRange).Observe(d.Seconds())
}

// RecordFetchError counts a refresh of one pair that was skipped.
func (m *Manager) RecordFetchError(kind, timeRange, reason string) {
	if !m.enabled {
		return
	}
	m.fetchErrors.WithLabelValues(kind, timeRange, reason).Inc()
}

// RecordRebuild observes the sort-and-rank time of one snapshot.
func (m *Manager) RecordRebuild(kind string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.rebuildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSwap publishes the size and time of a freshly installed snapshot.
func (m *Manager) RecordSwap(kind, timeRange string, size int, at time.Time) {
	if !m.enabled {
		return
	}
	m.rankingSize.WithLabelValues(kind, timeRange).Set(float64(size))
	m.lastSwapUnix.WithLabelValues(kind, timeRange).Set(float64(at.Unix()))
}

// RecordPass observes a completed rehydration pass.
func (m *Manager) RecordPass(d time.Duration, failed int) {
	if !m.enabled {
		return
	}
	m.passDuration.Observe(d.Seconds())
	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	m.passes.WithLabelValues(result).Inc()
}

// SetLoopAlive flips the loop liveness gauge.
func (m *Manager) SetLoopAlive(alive bool) {
	if !m.enabled {
		return
	}
	if alive {
		m.loopAlive.Set(1)
		return
	}
	m.loopAlive.Set(0)
}

// RecordHTTPRequest increments the HTTP request counter.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordQuery counts a ranking query outcome.
func (m *Manager) RecordQuery(kind, timeRange, outcome string) {
	if !m.enabled {
		return
	}
	m.queryResults.WithLabelValues(kind, timeRange, outcome).Inc()
}

// RecordErrorByComponent records errors by component and type.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordFetch observes a provider fetch on the global manager.
func RecordFetch(kind, timeRange string, d time.Duration) {
	globalManager.Load().RecordFetch(kind, timeRange, d)
}

// RecordFetchError counts a skipped pair on the global manager.
func RecordFetchError(kind, timeRange, reason string) {
	globalManager.Load().RecordFetchError(kind, timeRange, reason)
}

// RecordRebuild observes a snapshot build on the global manager.
func RecordRebuild(kind string, d time.Duration) {
	globalManager.Load().RecordRebuild(kind, d)
}

// RecordSwap publishes a snapshot swap on the global manager.
func RecordSwap(kind, timeRange string, size int, at time.Time) {
	globalManager.Load().RecordSwap(kind, timeRange, size, at)
}

// RecordPass observes a rehydration pass on the global manager.
func RecordPass(d time.Duration, failed int) {
	globalManager.Load().RecordPass(d, failed)
}

// SetLoopAlive flips the loop liveness gauge on the global manager.
func SetLoopAlive(alive bool) {
	globalManager.Load().SetLoopAlive(alive)
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.Load().RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.Load().RecordHTTPRequestDuration(endpoint, method, statusCode, durationMs)
}

// RecordQuery counts a ranking query outcome.
func RecordQuery(kind, timeRange, outcome string) {
	globalManager.Load().RecordQuery(kind, timeRange, outcome)
}

// RecordErrorByComponent records errors by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.Load().RecordErrorByComponent(component, errorType)
}

// GetRegistry returns the custom registry the global manager registers on.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
