package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// TelemetryEvent is one validated telemetry record distributed to
// subscribers.
type TelemetryEvent struct {
	Kind      envelope.Kind  `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp float64        `json:"timestamp"`
}

// Service is an in-memory telemetry distribution service. Every published
// payload is validated against the kind registry before any subscriber
// sees it.
type Service struct {
	registry *envelope.Registry
	now      func() time.Time

	mu          sync.Mutex
	subscribers []chan TelemetryEvent
	closed      bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock injects the event-timestamp clock.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a telemetry service. A nil registry uses the standard
// closed set of kinds.
func NewService(registry *envelope.Registry, opts ...ServiceOption) *Service {
	if registry == nil {
		registry = envelope.NewRegistry()
	}
	s := &Service{registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a new subscriber channel with the given buffer size.
// The channel is closed when the service closes.
func (s *Service) Subscribe(buffer int) <-chan TelemetryEvent {
	ch := make(chan TelemetryEvent, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Publish validates the payload and delivers the event to every subscriber,
// blocking on full subscriber buffers until ctx is done.
func (s *Service) Publish(ctx context.Context, kind envelope.Kind, payload map[string]any) (TelemetryEvent, error) {
	if err := s.registry.Validate(kind, payload); err != nil {
		return TelemetryEvent{}, err
	}

	event := TelemetryEvent{
		Kind:      kind,
		Payload:   payload,
		Timestamp: s.timestamp(),
	}

	s.mu.Lock()
	subscribers := append([]chan TelemetryEvent(nil), s.subscribers...)
	s.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
		case <-ctx.Done():
			return event, ctx.Err()
		}
	}
	return event, nil
}

// Close closes every subscriber channel. Publishing after Close panics on
// send; close the producers first.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

func (s *Service) timestamp() float64 {
	return float64(s.now().UnixNano()) / float64(time.Second)
}
