package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// MetricsRecorder records bridge metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one dispatch call with its duration and
	// validation outcome.
	RecordDispatch(ctx context.Context, kind envelope.Kind, duration time.Duration, err error)

	// RecordSinkOutcome records one per-sink delivery outcome.
	RecordSinkOutcome(ctx context.Context, sink string, status bridge.SendStatus)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	dispatchErrors  metric.Int64Counter
	sinkOutcomes    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("signalbridge")

	dispatches, err := meter.Int64Counter("signalbridge.dispatch.count",
		metric.WithDescription("Number of dispatch calls"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("signalbridge.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("signalbridge.dispatch.errors",
		metric.WithDescription("Number of dispatch validation failures"),
	)
	if err != nil {
		return nil, err
	}

	sinkOutcomes, err := meter.Int64Counter("signalbridge.sink.outcomes",
		metric.WithDescription("Per-sink delivery outcomes by status"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		dispatchErrors:  dispatchErrors,
		sinkOutcomes:    sinkOutcomes,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records one dispatch call.
func (m *otelMetrics) RecordDispatch(ctx context.Context, kind envelope.Kind, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", string(kind)),
	}

	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchLatency.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))

	if err != nil {
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordSinkOutcome records one per-sink delivery outcome.
func (m *otelMetrics) RecordSinkOutcome(ctx context.Context, sink string, status bridge.SendStatus) {
	m.sinkOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", string(status)),
	))
}
