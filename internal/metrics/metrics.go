// Package metrics instruments the dispatcher with OpenTelemetry counters
// and a histogram, exported via a Prometheus registry (spec §10/§11.4).
package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
)

const instrumentationName = "github.com/fyrsmithlabs/aidis/internal/metrics"

// Dispatch holds all dispatcher-level metrics: invocation counts,
// latency, errors by Kind, and active-request gauge.
type Dispatch struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewDispatch creates a Dispatch instance bound to the global OTel
// meter provider (set up by cmd/aidis before server startup).
func NewDispatch(logger *zap.Logger) *Dispatch {
	m := &Dispatch{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Dispatch) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"aidis.dispatch.invocations_total",
		metric.WithDescription("Total number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"aidis.dispatch.duration_seconds",
		metric.WithDescription("Duration of tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"aidis.dispatch.errors_total",
		metric.WithDescription("Total number of tool invocation errors, by kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"aidis.dispatch.active_requests",
		metric.WithDescription("Number of currently active tool invocations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// RecordInvocation records one dispatched call: count, latency, and
// (if err is non-nil) an error counted under its AIDISError Kind.
func (m *Dispatch) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("tool", toolName)}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		errAttrs := append(attrs, attribute.String("kind", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}

// IncrementActive increments the active-requests gauge for toolName.
func (m *Dispatch) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// DecrementActive decrements the active-requests gauge for toolName.
func (m *Dispatch) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// categorizeError returns the AIDISError Kind as a string, or
// "unknown_error" for an error this package doesn't recognize.
func categorizeError(err error) string {
	if ae, ok := aidiserr.As(err); ok {
		return strings.ToLower(string(ae.Kind))
	}
	return "unknown_error"
}
