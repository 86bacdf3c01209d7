package ports

import (
	"context"
	"time"

	"github.com/jordanholbrook/rcvkit/internal/domain"
)

// DatasetReader loads the three collections of an extracted dataset from
// an external source into memory.
// Implementations handle file discovery, header validation, and value
// coercion; the returned dataset is raw and not yet normalized.
type DatasetReader interface {
	// Read loads the dataset rooted at the given directory.
	// It returns a *domain.SchemaError when a collection is missing
	// required columns; this is the pipeline's only fail-fast input
	// condition. Malformed values inside a well-formed table never
	// cause an error.
	Read(ctx context.Context, dir string) (*domain.Dataset, error)
}

// DatasetWriter persists a normalized dataset and its tier scores to an
// external destination.
type DatasetWriter interface {
	// Write stores the dataset's three collections plus the per-contest
	// score table under the given directory, overwriting prior output.
	Write(ctx context.Context, dir string, dataset *domain.Dataset, scores []domain.ContestScore) error
}

// ReportSink persists validation reports for later review.
type ReportSink interface {
	// Save writes the report to the given path.
	Save(ctx context.Context, report *domain.Report, path string) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like rows dropped, rule
	// failures, contests processed, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like tier distribution across
	// the latest run.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like rule scores or
	// contest sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
