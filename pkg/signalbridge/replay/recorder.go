package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
)

// Frame is one captured envelope with its receipt timestamp (seconds since
// the Unix epoch, matching the Signal Bus wire format).
type Frame struct {
	Sink       string           `json:"sink"`
	Envelope   *bridge.Envelope `json:"envelope"`
	ReceivedAt float64          `json:"received_at"`
}

// Summary aggregates a recorded span.
type Summary struct {
	Frames   int            `json:"frames"`
	Sinks    map[string]int `json:"sinks"`
	Duration float64        `json:"duration"`
	MaxGap   float64        `json:"max_gap"`
}

// Recorder captures envelopes in call order. It implements
// bridge.EnvelopeRecorder and is safe for concurrent use.
type Recorder struct {
	now func() time.Time

	mu     sync.Mutex
	frames []Frame
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock injects the receipt-timestamp clock.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one frame stamped with the receipt time.
func (r *Recorder) Record(sink string, env *bridge.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Frame{
		Sink:       sink,
		Envelope:   env,
		ReceivedAt: float64(r.now().UnixNano()) / float64(time.Second),
	})
}

// Frames returns a snapshot of the recorded frames in recording order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// sorted returns the frames ordered by receipt time, recording order
// preserved on ties.
func (r *Recorder) sorted() []Frame {
	frames := r.Frames()
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].ReceivedAt < frames[j].ReceivedAt
	})
	return frames
}

// Export writes one JSON object per frame in non-decreasing receipt order,
// regardless of the order concurrent recording produced.
func (r *Recorder) Export(w io.Writer) error {
	for _, frame := range r.sorted() {
		line, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal replay frame: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write replay frame: %w", err)
		}
	}
	return nil
}

// Summary reports frame counts, the recorded span, and the maximum
// inter-frame gap across the whole span.
func (r *Recorder) Summary() Summary {
	frames := r.Frames()

	summary := Summary{
		Frames: len(frames),
		Sinks:  make(map[string]int),
	}
	if len(frames) == 0 {
		return summary
	}

	timestamps := make([]float64, 0, len(frames))
	for _, frame := range frames {
		summary.Sinks[frame.Sink]++
		timestamps = append(timestamps, frame.ReceivedAt)
	}
	sort.Float64s(timestamps)

	summary.Duration = timestamps[len(timestamps)-1] - timestamps[0]
	for i := 1; i < len(timestamps); i++ {
		if gap := timestamps[i] - timestamps[i-1]; gap > summary.MaxGap {
			summary.MaxGap = gap
		}
	}
	return summary
}
