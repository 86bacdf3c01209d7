// Package middleware provides cross-cutting concerns for the validation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jordanholbrook/rcvkit/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides real-time monitoring of pipeline stage performance, rule
// outcomes, row throughput, and the contest tier distribution.
type PrometheusMetrics struct {
	stageLatency     *prometheus.HistogramVec
	rowsProcessed    *prometheus.CounterVec
	rowsDropped      *prometheus.CounterVec
	ruleEvaluations  *prometheus.CounterVec
	ruleScores       *prometheus.HistogramVec
	contestsByTier   *prometheus.GaugeVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		// Pipeline-specific metrics.
		stageLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rcvkit_stage_duration_seconds",
				Help:    "Execution time of pipeline stages and rule evaluations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		rowsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcvkit_rows_processed_total",
				Help: "Total number of rows surviving normalization, per collection.",
			},
			[]string{"collection"},
		),
		rowsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcvkit_rows_dropped_total",
				Help: "Total number of rows dropped during cleaning, per collection.",
			},
			[]string{"collection"},
		),
		ruleEvaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcvkit_rule_evaluations_total",
				Help: "Total number of rule evaluations, by rule and outcome.",
			},
			[]string{"rule", "status"},
		),
		ruleScores: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rcvkit_rule_score",
				Help:    "Distribution of rule scores on the 0-100 scale.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"rule"},
		),
		contestsByTier: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rcvkit_contests_by_tier",
				Help: "Number of contests classified into each review tier.",
			},
			[]string{"tier"},
		),

		// General metrics for anything outside the pipeline's core set.
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcvkit_operations_total",
				Help: "Total number of operations performed by the engine.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rcvkit_system_state",
				Help: "Current system state values for the engine.",
			},
			[]string{"metric"},
		),
	}
}

// labelOr returns the named label value, or fallback when absent or empty.
func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.stageLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "rows_processed_total":
		pm.rowsProcessed.WithLabelValues(
			labelOr(labels, "collection", "unknown"),
		).Add(value)
	case "rows_dropped_total":
		pm.rowsDropped.WithLabelValues(
			labelOr(labels, "collection", "unknown"),
		).Add(value)
	case "rule_evaluations_total":
		pm.ruleEvaluations.WithLabelValues(
			labelOr(labels, "rule", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(
			metric,
			labelOr(labels, "status", "success"),
		).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "contests_by_tier":
		pm.contestsByTier.WithLabelValues(
			labelOr(labels, "tier", "unknown"),
		).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "rule_score":
		pm.ruleScores.WithLabelValues(
			labelOr(labels, "rule", "unknown"),
		).Observe(value)
	default:
		pm.stageLatency.WithLabelValues(metric).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
