package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// Record is one contract log line. Dispatched records carry the derived
// metrics; rate-limited records carry Status "rate_limited" and omit them.
type Record struct {
	Timestamp    float64                  `json:"timestamp"`
	Sink         string                   `json:"sink"`
	Kind         envelope.Kind            `json:"kind"`
	SessionID    string                   `json:"session_id"`
	SDKSurface   string                   `json:"sdk_surface"`
	Capabilities map[string]any           `json:"capabilities"`
	Minimal      envelope.MinimalParams   `json:"minimal"`
	Derived      *envelope.DerivedMetrics `json:"derived,omitempty"`
	BridgedAt    float64                  `json:"bridged_at"`
	Status       string                   `json:"status,omitempty"`
}

// StructuredLogger writes contract records as line-delimited JSON.
// It is safe for concurrent use.
type StructuredLogger struct {
	now func() time.Time

	mu sync.Mutex
	w  io.Writer
}

// LoggerOption configures a StructuredLogger.
type LoggerOption func(*StructuredLogger)

// WithLoggerClock injects the record-timestamp clock.
func WithLoggerClock(now func() time.Time) LoggerOption {
	return func(l *StructuredLogger) {
		l.now = now
	}
}

// NewStructuredLogger writes records to w.
func NewStructuredLogger(w io.Writer, opts ...LoggerOption) *StructuredLogger {
	l := &StructuredLogger{w: w, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogDispatched writes the contract line for a delivered envelope.
// The minimal parameters are passed explicitly; the logger never digs them
// out of the payload itself.
func (l *StructuredLogger) LogDispatched(sink string, env *bridge.Envelope, minimal envelope.MinimalParams) error {
	derived := env.Derived
	return l.write(Record{
		Sink:         sink,
		Kind:         env.Kind,
		SessionID:    env.Context.SessionID,
		SDKSurface:   env.Context.SDKSurface,
		Capabilities: env.Context.Capabilities,
		Minimal:      minimal,
		Derived:      &derived,
		BridgedAt:    env.BridgedAt,
	})
}

// LogRateLimited writes the contract line for a declined delivery. The
// record carries the minimal parameters but no derived metrics.
func (l *StructuredLogger) LogRateLimited(sink string, env *bridge.Envelope, minimal envelope.MinimalParams) error {
	return l.write(Record{
		Sink:         sink,
		Kind:         env.Kind,
		SessionID:    env.Context.SessionID,
		SDKSurface:   env.Context.SDKSurface,
		Capabilities: env.Context.Capabilities,
		Minimal:      minimal,
		BridgedAt:    env.BridgedAt,
		Status:       "rate_limited",
	})
}

func (l *StructuredLogger) write(record Record) error {
	record.Timestamp = float64(l.now().UnixNano()) / float64(time.Second)

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal contract record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write contract record: %w", err)
	}
	return nil
}

// BufferedLogger is a StructuredLogger writing to an in-memory buffer, for
// feeding a capture straight into ParseRecords or a performance report.
type BufferedLogger struct {
	StructuredLogger
	buf bytes.Buffer
}

// NewBufferedLogger collects contract records in memory.
func NewBufferedLogger(opts ...LoggerOption) *BufferedLogger {
	l := &BufferedLogger{}
	l.w = &l.buf
	l.now = time.Now
	for _, opt := range opts {
		opt(&l.StructuredLogger)
	}
	return l
}

// Records parses everything logged so far. Logging may continue afterwards.
func (l *BufferedLogger) Records() ([]Record, error) {
	l.mu.Lock()
	data := append([]byte(nil), l.buf.Bytes()...)
	l.mu.Unlock()
	return ParseRecords(bytes.NewReader(data))
}

// ParseRecords reads a contract log stream back into records. Blank lines
// are skipped; a malformed line aborts with its line number.
func ParseRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("parse contract record on line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read contract log: %w", err)
	}
	return records, nil
}
