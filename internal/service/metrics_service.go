package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	workflowTransitions *prometheus.CounterVec
	extractionDuration  prometheus.Observer
	extractionFailures  prometheus.Counter
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

	workflowTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Total workflow stage transitions",
	}, []string{"from", "to", "event"})

	extractionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_extraction_duration_seconds",
		Help:    "Duration of transcript extraction calls",
		Buckets: prometheus.DefBuckets,
	})

	extractionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transcript_extraction_failures_total",
		Help: "Total failed transcript extraction calls",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, workflowTransitions, extractionDuration, extractionFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		workflowTransitions: workflowTransitions,
		extractionDuration:  extractionDuration,
		extractionFailures:  extractionFailures,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordWorkflowTransition counts one stage movement.
func (m *MetricsService) RecordWorkflowTransition(from, to, event string) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(from, to, event).Inc()
}

// ObserveExtraction records the timing and outcome of an extraction call.
func (m *MetricsService) ObserveExtraction(duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.extractionDuration.Observe(duration.Seconds())
	if failed {
		m.extractionFailures.Inc()
	}
}
