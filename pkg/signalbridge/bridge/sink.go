package bridge

import (
	"context"
	"sync"
	"time"
)

// SendStatus is the per-dispatch outcome a transport sink reports.
type SendStatus string

// The three outcomes a send can have. Rate limiting is an expected,
// recorded outcome, not a failure.
const (
	StatusDispatched  SendStatus = "dispatched"
	StatusRateLimited SendStatus = "rate_limited"
	StatusError       SendStatus = "error"
)

// StatusFunc receives the outcome of one send attempt. detail carries the
// error text for error outcomes and is empty otherwise.
type StatusFunc func(sink string, status SendStatus, detail string)

// Sink is a named delivery target for envelopes.
type Sink interface {
	Name() string

	// Send delivers one envelope. For bare sinks any error propagates to
	// the caller; transport sinks capture their own failures and report
	// them through their status callback instead.
	Send(ctx context.Context, env *Envelope, dctx *Context) error
}

// ObservableSink is a sink that accepts a per-call status callback. The
// callback is threaded through the call rather than stored on the sink, so
// concurrent dispatches never mutate shared sink state.
type ObservableSink interface {
	Sink
	SendObserved(ctx context.Context, env *Envelope, dctx *Context, status StatusFunc) error
}

// SendDataFunc is the bare transport primitive a TransportSink wraps:
// serialize the envelope and hand it to the wire.
type SendDataFunc func(ctx context.Context, env *Envelope, dctx *Context) error

// EnvelopeRecorder captures dispatched envelopes for deterministic replay.
// Implemented by replay.Recorder.
type EnvelopeRecorder interface {
	Record(sink string, env *Envelope)
}

// ErrorEntry is one captured sink failure.
type ErrorEntry struct {
	Sink       string  `json:"sink"`
	Error      string  `json:"error"`
	RecordedAt float64 `json:"recorded_at"`
}

// TransportSink composes a bare send primitive with a rate-limit pre-check,
// error capture, status reporting, and an optional replay hook. Transport
// failures are captured in the sink's error log and never propagate past
// the sink.
type TransportSink struct {
	name     string
	sendData SendDataFunc
	limiter  *RateLimiter
	recorder EnvelopeRecorder
	status   StatusFunc
	now      func() time.Time

	mu       sync.Mutex
	errorLog []ErrorEntry
}

// TransportOption configures a TransportSink.
type TransportOption func(*TransportSink)

// WithRateLimiter guards the sink with a token bucket.
func WithRateLimiter(limiter *RateLimiter) TransportOption {
	return func(s *TransportSink) {
		s.limiter = limiter
	}
}

// WithRecorder forwards every dispatched envelope to a replay recorder.
func WithRecorder(recorder EnvelopeRecorder) TransportOption {
	return func(s *TransportSink) {
		s.recorder = recorder
	}
}

// WithStatusFunc sets the default status callback used when Send is called
// without an observing decorator.
func WithStatusFunc(status StatusFunc) TransportOption {
	return func(s *TransportSink) {
		s.status = status
	}
}

// WithTransportClock injects a clock for error-log timestamps.
func WithTransportClock(now func() time.Time) TransportOption {
	return func(s *TransportSink) {
		s.now = now
	}
}

// NewTransportSink wraps a bare send primitive into a transport sink.
func NewTransportSink(name string, sendData SendDataFunc, opts ...TransportOption) *TransportSink {
	s := &TransportSink{
		name:     name,
		sendData: sendData,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the sink name.
func (s *TransportSink) Name() string { return s.name }

// Send delivers one envelope using the sink's default status callback.
func (s *TransportSink) Send(ctx context.Context, env *Envelope, dctx *Context) error {
	return s.SendObserved(ctx, env, dctx, s.status)
}

// SendObserved delivers one envelope and reports the outcome through status,
// invoked exactly once per call. A nil status falls back to the sink's
// default callback.
func (s *TransportSink) SendObserved(ctx context.Context, env *Envelope, dctx *Context, status StatusFunc) error {
	if status == nil {
		status = s.status
	}
	report := func(st SendStatus, detail string) {
		if status != nil {
			status(s.name, st, detail)
		}
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.appendError(string(StatusRateLimited))
		report(StatusRateLimited, string(StatusRateLimited))
		return nil
	}

	if err := s.sendData(ctx, env, dctx); err != nil {
		s.appendError(err.Error())
		report(StatusError, err.Error())
		return nil
	}

	report(StatusDispatched, "")
	if s.recorder != nil {
		s.recorder.Record(s.name, env)
	}
	return nil
}

// ErrorLog returns a snapshot of the captured failures in capture order.
func (s *TransportSink) ErrorLog() []ErrorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorEntry(nil), s.errorLog...)
}

func (s *TransportSink) appendError(detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, ErrorEntry{
		Sink:       s.name,
		Error:      detail,
		RecordedAt: unixSeconds(s.now()),
	})
}

// Delivery is one envelope/context pair received by a MemorySink.
type Delivery struct {
	Envelope *Envelope
	Context  *Context
}

// MemorySink records envelopes in memory for assertions in tests.
type MemorySink struct {
	name string

	mu       sync.Mutex
	received []Delivery
}

// NewMemorySink creates an in-memory recording sink.
func NewMemorySink(name string) *MemorySink {
	return &MemorySink{name: name}
}

// Name returns the sink name.
func (s *MemorySink) Name() string { return s.name }

// Send records the delivery.
func (s *MemorySink) Send(_ context.Context, env *Envelope, dctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, Delivery{Envelope: env, Context: dctx})
	return nil
}

// Received returns a snapshot of the recorded deliveries.
func (s *MemorySink) Received() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.received...)
}

// FuncSink adapts a function to the Sink interface.
type FuncSink struct {
	name string
	fn   func(ctx context.Context, env *Envelope, dctx *Context) error
}

// NewFuncSink wraps fn as a bare sink.
func NewFuncSink(name string, fn func(ctx context.Context, env *Envelope, dctx *Context) error) *FuncSink {
	return &FuncSink{name: name, fn: fn}
}

// Name returns the sink name.
func (s *FuncSink) Name() string { return s.name }

// Send invokes the wrapped function.
func (s *FuncSink) Send(ctx context.Context, env *Envelope, dctx *Context) error {
	return s.fn(ctx, env, dctx)
}
