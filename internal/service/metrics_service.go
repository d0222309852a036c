package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusops/timetable-api/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// timetable generator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	generatorRuns       *prometheus.CounterVec
	generatorScheduled  prometheus.Histogram
	generatorIterations prometheus.Histogram
	generatorBacktracks prometheus.Histogram
	generatorDuration   prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	generatorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generator_runs_total",
		Help: "Timetable generation runs by outcome",
	}, []string{"outcome"})

	generatorScheduled := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_scheduled_sections",
		Help:    "Sections scheduled per generation run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	generatorIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_iterations",
		Help:    "Search iterations consumed per generation run",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	generatorBacktracks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_backtracks",
		Help:    "Backtrack steps per generation run",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	generatorDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_duration_seconds",
		Help:    "Wall-clock duration of generation runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dbQueryDuration,
		generatorRuns, generatorScheduled, generatorIterations, generatorBacktracks, generatorDuration,
		goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		dbQueryDuration:     dbQueryDuration,
		generatorRuns:       generatorRuns,
		generatorScheduled:  generatorScheduled,
		generatorIterations: generatorIterations,
		generatorBacktracks: generatorBacktracks,
		generatorDuration:   generatorDuration,
	}
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

// ObserveHTTPRequest records per-request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveTimetableRun records the outcome and search statistics of one
// generation run.
func (m *MetricsService) ObserveTimetableRun(outcome string, scheduled int, stats dto.TimetableSearchStats) {
	if m == nil {
		return
	}
	m.generatorRuns.WithLabelValues(outcome).Inc()
	m.generatorScheduled.Observe(float64(scheduled))
	m.generatorIterations.Observe(float64(stats.TotalIterations))
	m.generatorBacktracks.Observe(float64(stats.BacktrackCount))
	m.generatorDuration.Observe(float64(stats.ElapsedMilliseconds) / 1000)
}
