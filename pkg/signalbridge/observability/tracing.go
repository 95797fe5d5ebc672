package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// Tracer is the bridge tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("signalbridge")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span for one dispatch call.
	StartDispatchSpan(ctx context.Context, kind envelope.Kind, sessionID string) (context.Context, trace.Span)

	// StartSinkSpan starts a span for one sink delivery.
	// The sink span should be a child of the dispatch span.
	StartSinkSpan(ctx context.Context, sink string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDispatchSpan starts a span for one dispatch call.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, kind envelope.Kind, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "signalbridge.dispatch",
		trace.WithAttributes(
			attribute.String("envelope.kind", string(kind)),
			attribute.String("session.id", sessionID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSinkSpan starts a span for one sink delivery.
func (m *otelSpanManager) StartSinkSpan(ctx context.Context, sink string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "signalbridge.sink."+sink,
		trace.WithAttributes(
			attribute.String("sink.name", sink),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
