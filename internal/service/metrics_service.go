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

// MetricsService encapsulates Prometheus instrumentation and a lightweight snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	logins          *prometheus.CounterVec
	registrations   prometheus.Counter
	tcIssued        *prometheus.CounterVec
	tcIssueFailures *prometheus.CounterVec
	tcLookups       *prometheus.CounterVec
	tcCleanup       *prometheus.CounterVec
	storageLatency  *prometheus.HistogramVec

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	issuedCount    uint64
	lookupCount    uint64
}

// MetricsSnapshot is a JSON friendly summary of the collected counters.
type MetricsSnapshot struct {
	RequestsTotal      uint64    `json:"requestsTotal"`
	CacheHits          uint64    `json:"cacheHits"`
	CacheMisses        uint64    `json:"cacheMisses"`
	CacheHitRatio      float64   `json:"cacheHitRatio"`
	CertificatesIssued uint64    `json:"certificatesIssued"`
	Lookups            uint64    `json:"lookups"`
	Goroutines         int       `json:"goroutines"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "students_registered_total",
			Help: "Student records created",
		}),
		tcIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tc_issued_total",
			Help: "Transfer certificates issued",
		}, []string{"format"}),
		tcIssueFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tc_issue_failures_total",
			Help: "Transfer certificate issuance failures by stage",
		}, []string{"stage"}),
		tcLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tc_lookups_total",
			Help: "Transfer certificate lookups by result",
		}, []string{"result"}),
		tcCleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tc_orphan_cleanup_total",
			Help: "Orphaned certificate blob cleanups by result",
		}, []string{"result"}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "object_storage_duration_seconds",
			Help:    "Duration of object storage calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHits, m.cacheMisses,
		m.logins, m.registrations, m.tcIssued, m.tcIssueFailures, m.tcLookups, m.tcCleanup, m.storageLatency,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordLogin counts a login attempt. Outcome is signup, signin or failed.
func (m *MetricsService) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// RecordRegistration counts a created student record.
func (m *MetricsService) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// RecordTCIssued counts an issued certificate.
func (m *MetricsService) RecordTCIssued(format string) {
	if m == nil {
		return
	}
	m.tcIssued.WithLabelValues(format).Inc()
	atomic.AddUint64(&m.issuedCount, 1)
}

// RecordTCIssueFailure counts a failed issuance at the given stage.
func (m *MetricsService) RecordTCIssueFailure(stage string) {
	if m == nil {
		return
	}
	m.tcIssueFailures.WithLabelValues(stage).Inc()
}

// RecordTCLookup counts a lookup. Result is found, not_found or error.
func (m *MetricsService) RecordTCLookup(result string) {
	if m == nil {
		return
	}
	m.tcLookups.WithLabelValues(result).Inc()
	atomic.AddUint64(&m.lookupCount, 1)
}

// RecordOrphanCleanup counts a cleanup outcome for an orphaned blob.
func (m *MetricsService) RecordOrphanCleanup(result string) {
	if m == nil {
		return
	}
	m.tcCleanup.WithLabelValues(result).Inc()
}

// ObserveStorage records the duration of an object storage call.
func (m *MetricsService) ObserveStorage(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storageLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return MetricsSnapshot{
		RequestsTotal:      atomic.LoadUint64(&m.requestCount),
		CacheHits:          hits,
		CacheMisses:        misses,
		CacheHitRatio:      ratio,
		CertificatesIssued: atomic.LoadUint64(&m.issuedCount),
		Lookups:            atomic.LoadUint64(&m.lookupCount),
		Goroutines:         runtime.NumGoroutine(),
		GeneratedAt:        time.Now().UTC(),
	}
}
