package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loanOps         *prometheus.CounterVec
	loanOpDuration  *prometheus.HistogramVec
	sweepDuration   prometheus.Histogram
	sanctions       *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	loanOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_operations_total",
		Help: "Loan ledger operations by outcome code",
	}, []string{"operation", "result"})

	loanOpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loan_operation_duration_seconds",
		Help:    "Duration of loan ledger transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sanction_sweep_duration_seconds",
		Help:    "Duration of automatic sanction sweeps",
		Buckets: []float64{.05, .1, .5, 1, 5, 15, 60},
	})

	sanctions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanction_sweep_students_total",
		Help: "Students evaluated by automatic sweeps by outcome",
	}, []string{"outcome"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_cache_latency_seconds",
		Help:    "Latency for report cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_hits_total",
		Help: "Total report cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_misses_total",
		Help: "Total report cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loanOps, loanOpDuration, sweepDuration, sanctions,
		cacheLatency, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loanOps:         loanOps,
		loanOpDuration:  loanOpDuration,
		sweepDuration:   sweepDuration,
		sanctions:       sanctions,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveLoanOperation counts a ledger operation under its result code.
func (m *MetricsService) ObserveLoanOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loanOps.WithLabelValues(operation, result).Inc()
	m.loanOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveSweep records one sanction sweep.
func (m *MetricsService) ObserveSweep(duration time.Duration, created, alreadyOpen, failed int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
	m.sanctions.WithLabelValues("created").Add(float64(created))
	m.sanctions.WithLabelValues("already_open").Add(float64(alreadyOpen))
	m.sanctions.WithLabelValues("failed").Add(float64(failed))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
