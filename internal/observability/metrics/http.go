package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the API surface.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	UploadBytes     prometheus.Histogram

	registry *prometheus.Registry
}

// NewHTTPMetrics creates a new instance of HTTPMetrics and registers it
// with the given registry.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() error {
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speech_http_request_duration_seconds",
			Help:    "Time taken to serve an HTTP request",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~80s
		},
		[]string{"method", "path", "status"},
	)

	m.RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	m.UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "speech_http_upload_bytes",
			Help:    "Size of uploaded audio files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to ~256MiB
		},
	)

	return nil
}

// RecordRequest records one served request.
func (m *HTTPMetrics) RecordRequest(method, path string, status int, durationSeconds float64) {
	statusLabel := strconv.Itoa(status)
	m.RequestTotal.WithLabelValues(method, path, statusLabel).Inc()
	m.RequestDuration.WithLabelValues(method, path, statusLabel).Observe(durationSeconds)
}

// RecordUpload records the size of one uploaded file.
func (m *HTTPMetrics) RecordUpload(bytes int64) {
	m.UploadBytes.Observe(float64(bytes))
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestDuration.Describe(ch)
	m.RequestTotal.Describe(ch)
	ch <- m.UploadBytes.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestDuration.Collect(ch)
	m.RequestTotal.Collect(ch)
	ch <- m.UploadBytes
}
