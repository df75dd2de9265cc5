// Package metrics provides custom Prometheus metrics for the speech
// analysis service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// InferenceMetrics contains all Prometheus metrics related to model
// loading and prediction.
type InferenceMetrics struct {
	PredictionDuration *prometheus.HistogramVec
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	ModelLoadDuration  *prometheus.HistogramVec
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoadErrors    *prometheus.CounterVec
	ModelReadyGauge    *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewInferenceMetrics creates a new instance of InferenceMetrics and
// registers it with the given registry.
func NewInferenceMetrics(registry *prometheus.Registry) (*InferenceMetrics, error) {
	m := &InferenceMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize inference metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register inference metrics: %w", err)
	}
	return m, nil
}

func (m *InferenceMetrics) initMetrics() error {
	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speech_prediction_duration_seconds",
			Help:    "Time taken to run one model prediction",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"family"},
	)

	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_predictions_total",
			Help: "Total number of predictions processed",
		},
		[]string{"family"},
	)

	m.PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_prediction_errors_total",
			Help: "Total number of prediction errors",
		},
		[]string{"family"},
	)

	m.ModelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speech_model_load_duration_seconds",
			Help:    "Time taken to load a model including artifact download",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
		[]string{"family"},
	)

	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_model_loads_total",
			Help: "Total number of model load attempts",
		},
		[]string{"family"},
	)

	m.ModelLoadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_model_load_errors_total",
			Help: "Total number of failed model loads",
		},
		[]string{"family"},
	)

	m.ModelReadyGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "speech_model_ready",
			Help: "Whether a model family is loaded and serving (1) or not (0)",
		},
		[]string{"family"},
	)

	return nil
}

// RecordPrediction records the duration and outcome of one prediction.
func (m *InferenceMetrics) RecordPrediction(family string, durationSeconds float64, err error) {
	m.PredictionTotal.WithLabelValues(family).Inc()
	if err != nil {
		m.PredictionErrors.WithLabelValues(family).Inc()
		return
	}
	m.PredictionDuration.WithLabelValues(family).Observe(durationSeconds)
}

// RecordModelLoad records the duration and outcome of one load attempt.
func (m *InferenceMetrics) RecordModelLoad(family string, durationSeconds float64, err error) {
	m.ModelLoadTotal.WithLabelValues(family).Inc()
	if err != nil {
		m.ModelLoadErrors.WithLabelValues(family).Inc()
		m.ModelReadyGauge.WithLabelValues(family).Set(0)
		return
	}
	m.ModelLoadDuration.WithLabelValues(family).Observe(durationSeconds)
	m.ModelReadyGauge.WithLabelValues(family).Set(1)
}

// Describe implements the prometheus.Collector interface.
func (m *InferenceMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionDuration.Describe(ch)
	m.PredictionTotal.Describe(ch)
	m.PredictionErrors.Describe(ch)
	m.ModelLoadDuration.Describe(ch)
	m.ModelLoadTotal.Describe(ch)
	m.ModelLoadErrors.Describe(ch)
	m.ModelReadyGauge.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *InferenceMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionDuration.Collect(ch)
	m.PredictionTotal.Collect(ch)
	m.PredictionErrors.Collect(ch)
	m.ModelLoadDuration.Collect(ch)
	m.ModelLoadTotal.Collect(ch)
	m.ModelLoadErrors.Collect(ch)
	m.ModelReadyGauge.Collect(ch)
}
