// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Session metrics
	SessionsCreated prometheus.Counter
	StoredSessions  prometheus.Gauge

	// Job metrics
	JobsCreated      prometheus.Counter
	JobsCompleted    prometheus.Counter
	JobsFailed       *prometheus.CounterVec
	JobsInProgress   prometheus.Gauge
	JobDownloadBytes prometheus.Counter
	JobDuration      prometheus.Histogram
	StoredJobs       prometheus.Gauge

	// Fetcher metrics
	FetcherErrors *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of sessions created",
		}),
		StoredSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "instadl",
			Subsystem: "sessions",
			Name:      "stored_current",
			Help:      "Current number of cached sessions",
		}),

		JobsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "created_total",
			Help:      "Total number of jobs created",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total number of jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "failed_total",
			Help:      "Total number of jobs that failed",
		}, []string{"error_type"}),
		JobsInProgress: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "in_progress",
			Help:      "Number of jobs currently in progress",
		}),
		JobDownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded across all jobs",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Histogram of job download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StoredJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "instadl",
			Subsystem: "jobs",
			Name:      "stored_current",
			Help:      "Current number of stored job records",
		}),

		FetcherErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "fetcher",
			Name:      "errors_total",
			Help:      "Total number of fetcher errors",
		}, []string{"error_type"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "instadl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "instadl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobTimer returns a function to record job duration.
func (m *Metrics) JobTimer() func() {
	start := time.Now()

	return func() {
		m.JobDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSessionCreated increments the sessions created counter.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordJobCreated increments the jobs created counter.
func (m *Metrics) RecordJobCreated() {
	m.JobsCreated.Inc()
	m.JobsInProgress.Inc()
}

// RecordJobCompleted records a completed job.
func (m *Metrics) RecordJobCompleted() {
	m.JobsCompleted.Inc()
	m.JobsInProgress.Dec()
}

// RecordJobFailed records a failed job with its taxonomy tag.
func (m *Metrics) RecordJobFailed(errorType string) {
	m.JobsFailed.WithLabelValues(errorType).Inc()
	m.JobsInProgress.Dec()
}

// RecordFetcherError records a fetcher error by taxonomy tag.
func (m *Metrics) RecordFetcherError(errorType string) {
	m.FetcherErrors.WithLabelValues(errorType).Inc()
}

// AddDownloadBytes adds to the downloaded bytes counter.
func (m *Metrics) AddDownloadBytes(n int64) {
	m.JobDownloadBytes.Add(float64(n))
}

// SetStoredSessions sets the cached session gauge.
func (m *Metrics) SetStoredSessions(count int) {
	m.StoredSessions.Set(float64(count))
}

// SetStoredJobs sets the stored jobs gauge.
func (m *Metrics) SetStoredJobs(count int) {
	m.StoredJobs.Set(float64(count))
}
