package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// ObservedRouter wraps a bridge.Router with contract logging, health
// accounting, replay capture, metrics, and tracing.
//
// Unlike the bare router, per-sink failures never propagate out of an
// observed dispatch: every outcome is recorded against the sink and the
// call returns nil once validation has passed. Each sink delivery gets its
// own per-call status callback, so concurrent dispatches share no mutable
// sink state.
type ObservedRouter struct {
	router   *bridge.Router
	logger   *StructuredLogger
	monitor  *HealthMonitor
	recorder bridge.EnvelopeRecorder
	metrics  MetricsRecorder
	spans    SpanManager
	diag     *slog.Logger
}

// ObservedOption configures an ObservedRouter.
type ObservedOption func(*ObservedRouter)

// WithContractLog emits contract records for dispatched and rate-limited
// deliveries.
func WithContractLog(logger *StructuredLogger) ObservedOption {
	return func(r *ObservedRouter) {
		r.logger = logger
	}
}

// WithHealthMonitor accounts every delivery outcome.
func WithHealthMonitor(monitor *HealthMonitor) ObservedOption {
	return func(r *ObservedRouter) {
		r.monitor = monitor
	}
}

// WithReplayRecorder captures every dispatched envelope for replay. Sinks
// routed through an ObservedRouter should not carry their own recorder, or
// deliveries are captured twice.
func WithReplayRecorder(recorder bridge.EnvelopeRecorder) ObservedOption {
	return func(r *ObservedRouter) {
		r.recorder = recorder
	}
}

// WithMetrics sets the metrics recorder. Defaults to NoopMetrics.
func WithMetrics(metrics MetricsRecorder) ObservedOption {
	return func(r *ObservedRouter) {
		r.metrics = metrics
	}
}

// WithSpans sets the span manager. Defaults to NoopSpanManager.
func WithSpans(spans SpanManager) ObservedOption {
	return func(r *ObservedRouter) {
		r.spans = spans
	}
}

// WithDiagnostics sets the slog logger for ambient diagnostics such as
// contract-log write failures. Defaults to slog.Default().
func WithDiagnostics(diag *slog.Logger) ObservedOption {
	return func(r *ObservedRouter) {
		r.diag = diag
	}
}

// NewObservedRouter wraps router. A nil router gets a fresh one with the
// standard kind registry.
func NewObservedRouter(router *bridge.Router, opts ...ObservedOption) *ObservedRouter {
	if router == nil {
		router = bridge.NewRouter(nil)
	}
	r := &ObservedRouter{
		router:  router,
		metrics: NoopMetrics{},
		spans:   NoopSpanManager{},
		diag:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Router returns the wrapped router.
func (r *ObservedRouter) Router() *bridge.Router { return r.router }

// AddSink registers a sink on the wrapped router.
func (r *ObservedRouter) AddSink(sink bridge.Sink) error {
	return r.router.AddSink(sink)
}

// Dispatch validates the payload, fans the assembled envelope out to every
// sink, and records each delivery outcome. Validation failures return an
// error before any sink is touched; sink failures are recorded and
// isolated.
func (r *ObservedRouter) Dispatch(ctx context.Context, kind envelope.Kind, payload map[string]any, dctx *bridge.Context) error {
	start := time.Now()

	env, minimal, err := r.router.BuildEnvelope(kind, payload, dctx)
	if err != nil {
		r.metrics.RecordDispatch(ctx, kind, time.Since(start), err)
		return err
	}

	ctx, span := r.spans.StartDispatchSpan(ctx, kind, env.Context.SessionID)

	var group errgroup.Group
	for _, sink := range r.router.Sinks() {
		group.Go(func() error {
			r.dispatchOne(ctx, sink, env, minimal, dctx)
			return nil
		})
	}
	group.Wait()

	r.spans.EndSpanWithError(span, nil)
	r.metrics.RecordDispatch(ctx, kind, time.Since(start), nil)
	return nil
}

// dispatchOne delivers the envelope to a single sink and records the
// outcome. Observable sinks report through the per-call status callback;
// bare sinks are adapted onto the same accounting.
func (r *ObservedRouter) dispatchOne(ctx context.Context, sink bridge.Sink, env *bridge.Envelope, minimal envelope.MinimalParams, dctx *bridge.Context) {
	sctx, span := r.spans.StartSinkSpan(ctx, sink.Name())

	var dispatched, rateLimited bool
	var sinkErr error
	status := func(name string, st bridge.SendStatus, detail string) {
		switch st {
		case bridge.StatusDispatched:
			dispatched = true
		case bridge.StatusRateLimited:
			rateLimited = true
			LogRateLimitedDelivery(r.diag, name)
		case bridge.StatusError:
			sinkErr = errors.New(detail)
			LogSinkFailure(r.diag, name, detail)
		default:
			// A sink reporting a status we do not know counts as an error.
			st = bridge.StatusError
			sinkErr = errors.New(detail)
			LogSinkFailure(r.diag, name, detail)
		}
		r.account(sctx, name, st, detail)
	}

	if observable, ok := sink.(bridge.ObservableSink); ok {
		if err := observable.SendObserved(sctx, env, dctx, status); err != nil {
			status(sink.Name(), bridge.StatusError, err.Error())
		}
	} else if err := sink.Send(sctx, env, dctx); err != nil {
		status(sink.Name(), bridge.StatusError, err.Error())
	} else {
		status(sink.Name(), bridge.StatusDispatched, "")
	}

	switch {
	case dispatched:
		if r.recorder != nil {
			r.recorder.Record(sink.Name(), env)
		}
		if r.logger != nil {
			if err := r.logger.LogDispatched(sink.Name(), env, minimal); err != nil {
				LogContractWriteFailure(r.diag, sink.Name(), err)
			}
		}
	case rateLimited:
		if r.logger != nil {
			if err := r.logger.LogRateLimited(sink.Name(), env, minimal); err != nil {
				LogContractWriteFailure(r.diag, sink.Name(), err)
			}
		}
	}

	r.spans.EndSpanWithError(span, sinkErr)
}

func (r *ObservedRouter) account(ctx context.Context, sink string, status bridge.SendStatus, detail string) {
	if r.monitor != nil {
		r.monitor.Record(sink, status, detail)
	}
	r.metrics.RecordSinkOutcome(ctx, sink, status)
}
