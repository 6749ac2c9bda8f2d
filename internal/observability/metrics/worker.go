package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the snapshot refresher: invalidation events consumed
// and refresh outcomes. The service label is fixed at construction so the
// consumer can report through it without knowing about labels.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	eventTotal      *prometheus.CounterVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	refreshInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "worker",
			Name:      "invalidation_events_total",
			Help:      "Total invalidation events consumed by resource.",
		},
		[]string{"service", "resource"},
	)
	refreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "egw",
			Subsystem: "worker",
			Name:      "snapshot_refresh_total",
			Help:      "Total snapshot refresh attempts by status.",
		},
		[]string{"service", "status"},
	)
	refreshDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "egw",
			Subsystem: "worker",
			Name:      "snapshot_refresh_duration_seconds",
			Help:      "Snapshot refresh duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	refreshInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "egw",
			Subsystem: "worker",
			Name:      "snapshot_refresh_in_flight",
			Help:      "Number of in-flight snapshot refreshes.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(eventTotal, refreshTotal, refreshDuration, refreshInFlight)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		eventTotal:      eventTotal,
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		refreshInFlight: refreshInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordEvent(resource string) {
	if resource == "" {
		resource = "unknown"
	}
	m.eventTotal.WithLabelValues(m.service, resource).Inc()
}

func (m *WorkerMetrics) StartRefresh() {
	m.refreshInFlight.Inc()
}

func (m *WorkerMetrics) FinishRefresh(duration time.Duration, err error) {
	m.refreshInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.refreshTotal.WithLabelValues(m.service, status).Inc()
	m.refreshDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}
