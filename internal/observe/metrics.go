package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dtrack"

// Metrics holds the OpenTelemetry instruments for training and inference.
// All fields are safe for concurrent use.
type Metrics struct {
	// TrainingEpochs counts completed (evaluated) epochs. Attribute: model.
	TrainingEpochs metric.Int64Counter

	EpochDuration metric.Float64Histogram

	// ValidationLoss records the weighted validation loss of each evaluated epoch.
	ValidationLoss metric.Float64Histogram

	// TrainingRuns counts finished runs. Attributes: model, outcome.
	TrainingRuns metric.Int64Counter

	// ActiveRuns tracks models currently training in this process.
	ActiveRuns metric.Int64UpDownCounter

	InferenceDuration metric.Float64Histogram

	// InferenceMatches counts per-model winning labels. Attributes: model, label.
	InferenceMatches metric.Int64Counter
}

var epochBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

var inferenceBuckets = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

var lossBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8}

// NewMetrics creates every instrument on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TrainingEpochs, err = m.Int64Counter("dtrack.training.epochs",
		metric.WithDescription("Evaluated training epochs by model."),
	); err != nil {
		return nil, err
	}
	if met.EpochDuration, err = m.Float64Histogram("dtrack.training.epoch.duration",
		metric.WithDescription("Wall time of one training epoch including evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(epochBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ValidationLoss, err = m.Float64Histogram("dtrack.training.validation.loss",
		metric.WithDescription("Class-weighted validation loss per epoch."),
		metric.WithExplicitBucketBoundaries(lossBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TrainingRuns, err = m.Int64Counter("dtrack.training.runs",
		metric.WithDescription("Finished training runs by model and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActiveRuns, err = m.Int64UpDownCounter("dtrack.training.active",
		metric.WithDescription("Models currently training."),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("dtrack.inference.duration",
		metric.WithDescription("Latency of one multi-model inference over a segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(inferenceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceMatches, err = m.Int64Counter("dtrack.inference.matches",
		metric.WithDescription("Winning labels by model."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// MeterProvider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEpoch records one evaluated epoch.
func (m *Metrics) RecordEpoch(ctx context.Context, model string, elapsed time.Duration, validationLoss float64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.TrainingEpochs.Add(ctx, 1, attrs)
	m.EpochDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.ValidationLoss.Record(ctx, validationLoss, attrs)
}

// RecordRun records a finished training run.
func (m *Metrics) RecordRun(ctx context.Context, model, outcome string) {
	m.TrainingRuns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("outcome", outcome),
		),
	)
}

// TrackActive increments the active-run gauge and returns the matching decrement.
func (m *Metrics) TrackActive(ctx context.Context, model string) func() {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.ActiveRuns.Add(ctx, 1, attrs)
	return func() { m.ActiveRuns.Add(ctx, -1, attrs) }
}

// RecordInference records the latency of one aggregated inference.
func (m *Metrics) RecordInference(ctx context.Context, elapsed time.Duration, models int) {
	m.InferenceDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Int("models", models)),
	)
}

// RecordMatch counts a winning label for model.
func (m *Metrics) RecordMatch(ctx context.Context, model, label string) {
	m.InferenceMatches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("label", label),
		),
	)
}
