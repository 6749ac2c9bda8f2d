package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics carries the request-level metrics plus the gateway's own
// counters: upstream call outcomes, fallback soft-misses, cache hits and
// misses, and stale snapshot serves. It satisfies both the upstream client's
// Observer and the use cases' CacheObserver.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	upstreamRequestTotal    *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	softMissTotal           *prometheus.CounterVec
	cacheHitTotal           *prometheus.CounterVec
	cacheMissTotal          *prometheus.CounterVec
	staleServeTotal         *prometheus.CounterVec
	rateLimitedTotal        *prometheus.CounterVec
	sheddedTotal            *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "egw",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "egw",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	upstreamRequestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total upstream backend requests by path and status.",
		},
		[]string{"service", "path", "status"},
	)
	upstreamRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "egw",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
	softMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "upstream",
			Name:      "soft_miss_total",
			Help:      "Total 2xx upstream responses with empty payloads that advanced the fallback path walk.",
		},
		[]string{"service", "path"},
	)
	cacheHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "cache",
			Name:      "hit_total",
			Help:      "Total cache hits by resource.",
		},
		[]string{"service", "resource"},
	)
	cacheMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "cache",
			Name:      "miss_total",
			Help:      "Total cache misses by resource.",
		},
		[]string{"service", "resource"},
	)
	staleServeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "cache",
			Name:      "stale_serve_total",
			Help:      "Total responses served from the snapshot store after upstream failure.",
		},
		[]string{"service", "resource"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service"},
	)
	sheddedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "http",
			Name:      "shedded_total",
			Help:      "Total requests rejected by the concurrency limiter.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		upstreamRequestTotal,
		upstreamRequestDuration,
		softMissTotal,
		cacheHitTotal,
		cacheMissTotal,
		staleServeTotal,
		rateLimitedTotal,
		sheddedTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		upstreamRequestTotal:    upstreamRequestTotal,
		upstreamRequestDuration: upstreamRequestDuration,
		softMissTotal:           softMissTotal,
		cacheHitTotal:           cacheHitTotal,
		cacheMissTotal:          cacheMissTotal,
		staleServeTotal:         staleServeTotal,
		rateLimitedTotal:        rateLimitedTotal,
		sheddedTotal:            sheddedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds resource identifiers out of the label set.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/procedures/") && strings.HasSuffix(path, "/feedback"):
		return "/api/v1/procedures/{id}/feedback"
	case strings.HasPrefix(path, "/api/v1/procedures/") && strings.HasSuffix(path, "/feedback/export"):
		return "/api/v1/procedures/{id}/feedback/export"
	case strings.HasPrefix(path, "/api/v1/procedures/"):
		return "/api/v1/procedures/{id}"
	case strings.HasPrefix(path, "/api/v1/feedback/"):
		return "/api/v1/feedback/{id}"
	default:
		return path
	}
}

// service label is fixed at construction for the observer-style methods so
// the upstream client and use cases stay metrics-agnostic.

func (m *HTTPServerMetrics) Observer(service string) *GatewayObserver {
	return &GatewayObserver{metrics: m, service: service}
}

type GatewayObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (o *GatewayObserver) ObserveUpstreamRequest(path string, status int, duration time.Duration) {
	o.metrics.upstreamRequestTotal.WithLabelValues(o.service, upstreamPathLabel(path), strconv.Itoa(status)).Inc()
	o.metrics.upstreamRequestDuration.WithLabelValues(o.service, upstreamPathLabel(path)).Observe(duration.Seconds())
}

func (o *GatewayObserver) ObserveSoftMiss(path string) {
	o.metrics.softMissTotal.WithLabelValues(o.service, upstreamPathLabel(path)).Inc()
}

func (o *GatewayObserver) ObserveCacheHit(resource string) {
	o.metrics.cacheHitTotal.WithLabelValues(o.service, resource).Inc()
}

func (o *GatewayObserver) ObserveCacheMiss(resource string) {
	o.metrics.cacheMissTotal.WithLabelValues(o.service, resource).Inc()
}

func (o *GatewayObserver) ObserveStaleServe(resource string) {
	o.metrics.staleServeTotal.WithLabelValues(o.service, resource).Inc()
}

func (o *GatewayObserver) ObserveRateLimited() {
	o.metrics.rateLimitedTotal.WithLabelValues(o.service).Inc()
}

func (o *GatewayObserver) ObserveShedded() {
	o.metrics.sheddedTotal.WithLabelValues(o.service).Inc()
}

// upstreamPathLabel strips query strings and folds identifiers so the label
// cardinality stays bounded.
func upstreamPathLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if i > 0 && part != "" && parts[i-1] == "procedures" {
			parts[i] = "{id}"
		}
		if i > 0 && part != "" && parts[i-1] == "procedure" {
			parts[i] = "{id}"
		}
		if i > 0 && part != "" && parts[i-1] == "feedback" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
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
