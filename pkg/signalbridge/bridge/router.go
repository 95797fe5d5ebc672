package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// DuplicateSinkError indicates a sink registration that collides with an
// existing name. Registration is never a silent overwrite.
type DuplicateSinkError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateSinkError) Error() string {
	return fmt.Sprintf("duplicate sink name: %q", e.Name)
}

// Router validates envelopes, computes derived metrics, and dispatches the
// assembled envelope to every registered sink concurrently.
type Router struct {
	registry *envelope.Registry
	now      func() time.Time

	mu    sync.RWMutex
	names map[string]struct{}
	sinks []Sink
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClock injects the dispatch timestamp clock.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a router validating against the given registry. A nil
// registry uses the standard closed set of kinds.
func NewRouter(registry *envelope.Registry, opts ...RouterOption) *Router {
	if registry == nil {
		registry = envelope.NewRegistry()
	}
	r := &Router{
		registry: registry,
		now:      time.Now,
		names:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSink registers a sink. A name collision fails with DuplicateSinkError
// and leaves the sink set unchanged.
func (r *Router) AddSink(sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[sink.Name()]; exists {
		return &DuplicateSinkError{Name: sink.Name()}
	}
	r.names[sink.Name()] = struct{}{}
	r.sinks = append(r.sinks, sink)
	return nil
}

// Sinks returns the registered sinks in registration order.
func (r *Router) Sinks() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Sink(nil), r.sinks...)
}

// BuildEnvelope runs the synchronous stage of a dispatch: validation (all or
// nothing, before any sink is touched), minimal parameter extraction, metric
// derivation, and envelope assembly.
func (r *Router) BuildEnvelope(kind envelope.Kind, payload map[string]any, dctx *Context) (*Envelope, envelope.MinimalParams, error) {
	if err := r.registry.Validate(kind, payload); err != nil {
		return nil, envelope.MinimalParams{}, err
	}
	minimal, err := envelope.ExtractMinimal(kind, payload)
	if err != nil {
		return nil, envelope.MinimalParams{}, err
	}

	env := &Envelope{
		Kind:      kind,
		Payload:   payload,
		Derived:   envelope.Compute(minimal),
		Context:   dctx.Metadata(),
		BridgedAt: unixSeconds(r.now()),
	}
	return env, minimal, nil
}

// Dispatch validates the payload and sends the assembled envelope to every
// registered sink concurrently, starting sinks in registration order and
// waiting for all of them. Sink errors do not cancel sibling sends; the
// first error is returned after every sink has finished.
func (r *Router) Dispatch(ctx context.Context, kind envelope.Kind, payload map[string]any, dctx *Context) error {
	env, _, err := r.BuildEnvelope(kind, payload, dctx)
	if err != nil {
		return err
	}

	var group errgroup.Group
	for _, sink := range r.Sinks() {
		group.Go(func() error {
			return sink.Send(ctx, env, dctx)
		})
	}
	return group.Wait()
}
