package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
)

// SinkHealth is the accumulated delivery accounting for one sink.
type SinkHealth struct {
	Dispatched  int               `json:"dispatched"`
	RateLimited int               `json:"rate_limited"`
	Errors      int               `json:"errors"`
	LastStatus  bridge.SendStatus `json:"last_status"`
	UpdatedAt   float64           `json:"updated_at"`
}

// Pulse is a point-in-time health snapshot.
type Pulse struct {
	Sinks  map[string]SinkHealth `json:"sinks"`
	Errors []bridge.ErrorEntry   `json:"errors"`
}

// HealthMonitor tracks per-sink delivery outcomes and an unbounded error
// log. It is safe for concurrent use.
type HealthMonitor struct {
	now func() time.Time

	mu     sync.Mutex
	sinks  map[string]SinkHealth
	errors []bridge.ErrorEntry
}

// MonitorOption configures a HealthMonitor.
type MonitorOption func(*HealthMonitor)

// WithMonitorClock injects the accounting clock.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *HealthMonitor) {
		m.now = now
	}
}

// NewHealthMonitor creates an empty monitor.
func NewHealthMonitor(opts ...MonitorOption) *HealthMonitor {
	m := &HealthMonitor{
		now:   time.Now,
		sinks: make(map[string]SinkHealth),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record accounts one delivery outcome. Unknown statuses are a programming
// error and panic.
func (m *HealthMonitor) Record(sink string, status bridge.SendStatus, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := float64(m.now().UnixNano()) / float64(time.Second)
	health := m.sinks[sink]

	switch status {
	case bridge.StatusDispatched:
		health.Dispatched++
	case bridge.StatusRateLimited:
		health.RateLimited++
	case bridge.StatusError:
		health.Errors++
		m.errors = append(m.errors, bridge.ErrorEntry{
			Sink:       sink,
			Error:      detail,
			RecordedAt: stamp,
		})
	default:
		panic(fmt.Sprintf("observability: unknown send status %q", status))
	}

	health.LastStatus = status
	health.UpdatedAt = stamp
	m.sinks[sink] = health
}

// Pulse returns a snapshot of all sink counters and the error log. The
// returned maps and slices are copies.
func (m *HealthMonitor) Pulse() Pulse {
	m.mu.Lock()
	defer m.mu.Unlock()

	sinks := make(map[string]SinkHealth, len(m.sinks))
	for name, health := range m.sinks {
		sinks[name] = health
	}
	return Pulse{
		Sinks:  sinks,
		Errors: append([]bridge.ErrorEntry(nil), m.errors...),
	}
}
