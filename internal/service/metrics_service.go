package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
)

// Delivery outcomes used as metric labels.
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
	OutcomeStale       = "stale"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	lastTick        prometheus.Gauge
	decisions       *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec

	tickCount            uint64
	tickSkipped          uint64
	sentCount            uint64
	failedCount          uint64
	storeErrorCount      uint64
	requestCount         uint64
	requestDurationTotal uint64
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

	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_ticks_total",
		Help: "Scheduler sweeps by result",
	}, []string{"result"})

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reminder_tick_duration_seconds",
		Help:    "Duration of scheduler sweeps",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	lastTick := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reminder_last_tick_timestamp_seconds",
		Help: "Unix time of the last finished sweep",
	})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_decisions_total",
		Help: "Notifications the evaluator decided to send",
	}, []string{"kind"})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_deliveries_total",
		Help: "Delivery attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_store_errors_total",
		Help: "Obligation store failures by operation",
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ticks, tickDuration, lastTick, decisions, deliveries, storeErrors, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		ticks:           ticks,
		tickDuration:    tickDuration,
		lastTick:        lastTick,
		decisions:       decisions,
		deliveries:      deliveries,
		storeErrors:     storeErrors,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveTick records a finished sweep.
func (m *MetricsService) ObserveTick(report dto.TickReport) {
	if m == nil {
		return
	}
	result := "completed"
	switch {
	case report.Skipped:
		result = "skipped"
		atomic.AddUint64(&m.tickSkipped, 1)
	case report.Quizzes.StoreError != "" || report.Deadlines.StoreError != "":
		result = "degraded"
	}
	m.ticks.WithLabelValues(result).Inc()
	m.tickDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	m.lastTick.Set(float64(report.FinishedAt.Unix()))
	atomic.AddUint64(&m.tickCount, 1)
}

// RecordDecision counts a notification the evaluator produced.
func (m *MetricsService) RecordDecision(kind models.ObligationKind) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(kind)).Inc()
}

// RecordDelivery counts one delivery attempt.
func (m *MetricsService) RecordDelivery(kind models.ObligationKind, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(kind), outcome).Inc()
	switch outcome {
	case OutcomeSent:
		atomic.AddUint64(&m.sentCount, 1)
	case OutcomeFailed, OutcomeUnavailable:
		atomic.AddUint64(&m.failedCount, 1)
	}
}

// RecordStoreError counts an obligation store failure.
func (m *MetricsService) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
	atomic.AddUint64(&m.storeErrorCount, 1)
}

// Snapshot returns aggregated metrics suitable for the status endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return dto.MetricsSnapshot{
		TicksTotal:               atomic.LoadUint64(&m.tickCount),
		TicksSkipped:             atomic.LoadUint64(&m.tickSkipped),
		NotificationsSent:        atomic.LoadUint64(&m.sentCount),
		NotificationsFailed:      atomic.LoadUint64(&m.failedCount),
		StoreErrors:              atomic.LoadUint64(&m.storeErrorCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
