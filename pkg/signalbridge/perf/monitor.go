package perf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// DefaultBufferCapacity is the sample buffer size used when none is given.
const DefaultBufferCapacity = 256

// Sample is one recorded telemetry observation with its latency and derived
// metrics.
type Sample struct {
	Kind         envelope.Kind           `json:"kind"`
	Timestamp    float64                 `json:"timestamp"`
	ReceivedAt   float64                 `json:"received_at"`
	Latency      float64                 `json:"latency"`
	Minimal      envelope.MinimalParams  `json:"minimal"`
	Derived      envelope.DerivedMetrics `json:"derived"`
	Capabilities map[string]any          `json:"capabilities"`
}

// LatencyMetrics are latency aggregates over the buffered samples, in
// milliseconds. Jitter is the RMS deviation from the mean.
type LatencyMetrics struct {
	MeanMS   float64 `json:"mean_ms"`
	MaxMS    float64 `json:"max_ms"`
	JitterMS float64 `json:"jitter_ms"`
}

// ring is a fixed-capacity circular sample buffer. When full, the oldest
// sample is evicted. Iteration order is ingestion order.
type ring struct {
	data []Sample
	head int
	size int
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{data: make([]Sample, capacity)}
}

func (r *ring) append(sample Sample) {
	if len(r.data) == 0 {
		return
	}
	if r.size < len(r.data) {
		r.data[(r.head+r.size)%len(r.data)] = sample
		r.size++
		return
	}
	r.data[r.head] = sample
	r.head = (r.head + 1) % len(r.data)
}

func (r *ring) snapshot() []Sample {
	samples := make([]Sample, 0, r.size)
	for i := range r.size {
		samples = append(samples, r.data[(r.head+i)%len(r.data)])
	}
	return samples
}

// Monitor validates and buffers telemetry samples and aggregates their
// latencies. It is safe for concurrent use.
type Monitor struct {
	registry *envelope.Registry
	capacity int
	now      func() time.Time

	mu     sync.Mutex
	buffer *ring
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithClock injects the receipt clock used for latency computation.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor creates a monitor with the given buffer capacity. A nil
// registry uses the standard closed set of kinds.
func NewMonitor(registry *envelope.Registry, capacity int, opts ...MonitorOption) *Monitor {
	if registry == nil {
		registry = envelope.NewRegistry()
	}
	m := &Monitor{
		registry: registry,
		capacity: capacity,
		now:      time.Now,
		buffer:   newRing(capacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ingest validates the payload and records a sample. Latency is the
// non-negative difference between the receipt time and the payload's source
// timestamp; payloads without one use the receipt time and record zero.
func (m *Monitor) Ingest(kind envelope.Kind, payload map[string]any, dctx *bridge.Context) (Sample, error) {
	if err := m.registry.Validate(kind, payload); err != nil {
		return Sample{}, err
	}
	minimal, err := envelope.ExtractMinimal(kind, payload)
	if err != nil {
		return Sample{}, err
	}

	receivedAt := float64(m.now().UnixNano()) / float64(time.Second)
	sourceTS := receivedAt
	if ts, ok := payload["timestamp"]; ok {
		if f, ok := asFloat(ts); ok {
			sourceTS = f
		}
	}

	sample := Sample{
		Kind:         kind,
		Timestamp:    sourceTS,
		ReceivedAt:   receivedAt,
		Latency:      math.Max(0, receivedAt-sourceTS),
		Minimal:      minimal,
		Derived:      envelope.Compute(minimal),
		Capabilities: dctx.Capabilities,
	}

	m.mu.Lock()
	m.buffer.append(sample)
	m.mu.Unlock()
	return sample, nil
}

// Samples returns the buffered samples in ingestion order.
func (m *Monitor) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffer.snapshot()
}

// LatencyMetrics aggregates the buffered latencies. An empty buffer yields
// zeros.
func (m *Monitor) LatencyMetrics() LatencyMetrics {
	samples := m.Samples()
	if len(samples) == 0 {
		return LatencyMetrics{}
	}

	var sum, max float64
	for _, sample := range samples {
		sum += sample.Latency
		if sample.Latency > max {
			max = sample.Latency
		}
	}
	mean := sum / float64(len(samples))

	var squared float64
	for _, sample := range samples {
		dev := sample.Latency - mean
		squared += dev * dev
	}
	jitter := math.Sqrt(squared / float64(len(samples)))

	return LatencyMetrics{
		MeanMS:   mean * 1000,
		MaxMS:    max * 1000,
		JitterMS: jitter * 1000,
	}
}

// ExportSamples writes the buffered samples as line-delimited JSON for
// replay or downstream processing.
func (m *Monitor) ExportSamples(w io.Writer) error {
	for _, sample := range m.Samples() {
		line, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
	return nil
}

// CheckCapacity ensures the buffer can store at least one sample.
func (m *Monitor) CheckCapacity() error {
	if m.capacity < 1 {
		return &envelope.ValidationError{
			Field:   "buffer_capacity",
			Message: "must be positive for telemetry monitoring",
		}
	}
	return nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
