package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment outcomes reported to Prometheus.
const (
	EnrichmentOutcomeSuccess  = "success"
	EnrichmentOutcomeCacheHit = "cache_hit"
	EnrichmentOutcomeFallback = "fallback"
	EnrichmentOutcomeOpen     = "breaker_open"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	roadmapDuration *prometheus.HistogramVec
	roadmapWeeks    prometheus.Histogram
	enrichment      *prometheus.CounterVec
	breakerState    prometheus.Gauge
	exports         *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	roadmapDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roadmap_build_duration_seconds",
		Help:    "Time spent enumerating, resolving and packing a roadmap",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"source"})

	roadmapWeeks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadmap_weeks",
		Help:    "Number of weeks per built roadmap",
		Buckets: []float64{1, 5, 10, 20, 40, 60, 105},
	})

	enrichment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_enrichment_total",
		Help: "Lesson enrichment lookups by outcome",
	}, []string{"outcome"})

	breakerState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lesson_enrichment_breaker_state",
		Help: "Enrichment circuit breaker state (0 closed, 1 half-open, 2 open)",
	})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roadmap_exports_total",
		Help: "Rendered roadmap exports",
	}, []string{"format", "view"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		roadmapDuration, roadmapWeeks, enrichment, breakerState, exports, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		roadmapDuration: roadmapDuration,
		roadmapWeeks:    roadmapWeeks,
		enrichment:      enrichment,
		breakerState:    breakerState,
		exports:         exports,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRoadmapBuild records one planner run. source is "preview" or "plan".
func (m *MetricsService) ObserveRoadmapBuild(source string, weeks int, duration time.Duration) {
	if m == nil {
		return
	}
	m.roadmapDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.roadmapWeeks.Observe(float64(weeks))
}

// RecordEnrichment counts lesson enrichment outcomes.
func (m *MetricsService) RecordEnrichment(outcome string, lessons int) {
	if m == nil || lessons <= 0 {
		return
	}
	m.enrichment.WithLabelValues(outcome).Add(float64(lessons))
}

// SetBreakerState publishes the enrichment breaker state.
func (m *MetricsService) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

// RecordExport counts a rendered export file.
func (m *MetricsService) RecordExport(format, view string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, view).Inc()
}
