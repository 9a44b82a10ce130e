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
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	loginOutcomes     *prometheus.CounterVec
	auditFailures     prometheus.Counter
	auditDropped      prometheus.Counter
	delinquencyScan   prometheus.Histogram
	delinquentCurrent prometheus.Gauge
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

	loginOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by terminal state",
	}, []string{"outcome"})

	auditFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Bitácora rows that could not be persisted",
	})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_dropped_total",
		Help: "Bitácora entries dropped before reaching the writer",
	})

	delinquencyScan := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delinquency_scan_seconds",
		Help:    "Duration of morosos roster scans",
		Buckets: prometheus.DefBuckets,
	})

	delinquentCurrent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "delinquent_customers",
		Help: "Customers flagged delinquent by the latest roster scan",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loginOutcomes, auditFailures, auditDropped, delinquencyScan, delinquentCurrent, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		loginOutcomes:     loginOutcomes,
		auditFailures:     auditFailures,
		auditDropped:      auditDropped,
		delinquencyScan:   delinquencyScan,
		delinquentCurrent: delinquentCurrent,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordLogin counts one login terminal state.
func (m *MetricsService) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAuditFailure counts a bitácora write that failed.
func (m *MetricsService) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// RecordAuditDropped counts an entry the dispatcher refused.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// ObserveDelinquencyScan records a roster scan and its flagged count.
func (m *MetricsService) ObserveDelinquencyScan(duration time.Duration, flagged int) {
	if m == nil {
		return
	}
	m.delinquencyScan.Observe(duration.Seconds())
	m.delinquentCurrent.Set(float64(flagged))
}
