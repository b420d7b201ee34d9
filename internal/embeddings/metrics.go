package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/aidis/internal/embeddings"

// Metrics holds embedding-generation instrumentation.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates embedding metrics recorded under the otel meter
// provider registered globally (spec's ambient observability stack).
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{meter: otel.Meter(instrumentationName), logger: logger}
	m.init()
	return m
}

// NewNopMetrics returns a Metrics with a no-op logger, for callers that
// don't need one. Its instruments still come from the global meter
// provider, so they record wherever one is registered.
func NewNopMetrics() *Metrics {
	return NewMetrics(zap.NewNop())
}

func (m *Metrics) init() {
	var err error
	m.duration, err = m.meter.Float64Histogram(
		"aidis.embedding.generation_duration_seconds",
		metric.WithDescription("Duration of embedding generation calls, labeled by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create embedding duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"aidis.embedding.errors_total",
		metric.WithDescription("Total embedding generation errors by model and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create embedding errors counter", zap.Error(err))
	}
}

// RecordGeneration records one embedding call's outcome.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, d time.Duration, batchSize int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}
