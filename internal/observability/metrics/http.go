package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal       *prometheus.CounterVec
	retrievalDuration    *prometheus.HistogramVec
	retrievalConfidence  *prometheus.HistogramVec
	retrievalResultCount *prometheus.HistogramVec
	degradedTotal        *prometheus.CounterVec

	cacheHitTotal         *prometheus.CounterVec
	cacheMissTotal        *prometheus.CounterVec
	suppressedWritesTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careloop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "careloop",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total completed retrievals by selected strategy.",
		},
		[]string{"service", "strategy"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careloop",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4},
		},
		[]string{"service", "strategy"},
	)
	retrievalConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careloop",
			Subsystem: "retrieval",
			Name:      "confidence",
			Help:      "Distribution of overall lexical confidence scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"service"},
	)
	retrievalResultCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careloop",
			Subsystem: "retrieval",
			Name:      "results",
			Help:      "Distribution of returned results per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Total retrievals that served a degraded result, by cause.",
		},
		[]string{"service", "cause"},
	)
	cacheHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total response cache hits by tier.",
		},
		[]string{"service", "tier"},
	)
	cacheMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total response cache misses across all tiers.",
		},
		[]string{"service"},
	)
	suppressedWritesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "cache",
			Name:      "suppressed_writes_total",
			Help:      "Total cache writes suppressed by the sensitive content gate.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalDuration,
		retrievalConfidence,
		retrievalResultCount,
		degradedTotal,
		cacheHitTotal,
		cacheMissTotal,
		suppressedWritesTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		retrievalTotal:        retrievalTotal,
		retrievalDuration:     retrievalDuration,
		retrievalConfidence:   retrievalConfidence,
		retrievalResultCount:  retrievalResultCount,
		degradedTotal:         degradedTotal,
		cacheHitTotal:         cacheHitTotal,
		cacheMissTotal:        cacheMissTotal,
		suppressedWritesTotal: suppressedWritesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RetrievalMetrics is the per-service view the use case and the cache
// record through; the label set is fixed at construction.
type RetrievalMetrics struct {
	service string
	m       *HTTPServerMetrics
}

func (m *HTTPServerMetrics) Retrieval(service string) *RetrievalMetrics {
	return &RetrievalMetrics{service: service, m: m}
}

func (r *RetrievalMetrics) RecordRetrieval(strategy string, confidence float64, results int, duration time.Duration) {
	if strategy == "" {
		strategy = "unknown"
	}
	r.m.retrievalTotal.WithLabelValues(r.service, strategy).Inc()
	r.m.retrievalDuration.WithLabelValues(r.service, strategy).Observe(duration.Seconds())
	r.m.retrievalConfidence.WithLabelValues(r.service).Observe(confidence)
	r.m.retrievalResultCount.WithLabelValues(r.service).Observe(float64(results))
}

func (r *RetrievalMetrics) RecordDegraded(causes []string) {
	for _, cause := range causes {
		r.m.degradedTotal.WithLabelValues(r.service, cause).Inc()
	}
}

func (r *RetrievalMetrics) RecordCacheHit(tier string) {
	if tier == "" {
		tier = "unknown"
	}
	r.m.cacheHitTotal.WithLabelValues(r.service, tier).Inc()
}

func (r *RetrievalMetrics) RecordCacheMiss() {
	r.m.cacheMissTotal.WithLabelValues(r.service).Inc()
}

func (r *RetrievalMetrics) RecordSuppressedWrite() {
	r.m.suppressedWritesTotal.WithLabelValues(r.service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
