package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// Alignment is the spatial alignment metadata attached to a processed
// frame.
type Alignment struct {
	Quaternion  []float64 `json:"quaternion"`
	Translation []float64 `json:"translation"`
}

// ProcessedFrame is a normalized telemetry frame: the minimal parameters,
// their derived metrics, and optional spatial alignment.
type ProcessedFrame struct {
	Source    envelope.Kind           `json:"source"`
	Timestamp float64                 `json:"timestamp"`
	Minimal   envelope.MinimalParams  `json:"minimal"`
	Derived   envelope.DerivedMetrics `json:"derived"`
	HoloFrame string                  `json:"holo_frame,omitempty"`
	Alignment *Alignment              `json:"alignment,omitempty"`
}

// Normalizer consumes telemetry events and normalizes them into processed
// frames.
type Normalizer struct {
	events <-chan TelemetryEvent
}

// NewNormalizer subscribes to the service with the given buffer size.
func NewNormalizer(service *Service, buffer int) *Normalizer {
	return &Normalizer{events: service.Subscribe(buffer)}
}

// Drain collects frames until limit is reached, the subscription closes, or
// ctx is done.
func (n *Normalizer) Drain(ctx context.Context, limit int) ([]ProcessedFrame, error) {
	var frames []ProcessedFrame
	for limit <= 0 || len(frames) < limit {
		select {
		case event, ok := <-n.events:
			if !ok {
				return frames, nil
			}
			frame, err := normalize(event)
			if err != nil {
				return frames, err
			}
			frames = append(frames, frame)
		case <-ctx.Done():
			return frames, ctx.Err()
		}
	}
	return frames, nil
}

// Flush drains all currently buffered events without blocking.
func (n *Normalizer) Flush(limit int) ([]ProcessedFrame, error) {
	var frames []ProcessedFrame
	for limit <= 0 || len(frames) < limit {
		select {
		case event, ok := <-n.events:
			if !ok {
				return frames, nil
			}
			frame, err := normalize(event)
			if err != nil {
				return frames, err
			}
			frames = append(frames, frame)
		default:
			return frames, nil
		}
	}
	return frames, nil
}

func normalize(event TelemetryEvent) (ProcessedFrame, error) {
	minimal, err := envelope.ExtractMinimal(event.Kind, event.Payload)
	if err != nil {
		return ProcessedFrame{}, err
	}
	return ProcessedFrame{
		Source:    event.Kind,
		Timestamp: event.Timestamp,
		Minimal:   minimal,
		Derived:   envelope.Compute(minimal),
	}, nil
}

// AttachAlignment returns a copy of the frame augmented with spatial
// alignment metadata. The quaternion must have 4 entries and the
// translation 3.
func AttachAlignment(frame ProcessedFrame, holoFrame string, quaternion, translation []float64) (ProcessedFrame, error) {
	if len(quaternion) != 4 {
		return ProcessedFrame{}, &envelope.ValidationError{Field: "alignment.quaternion", Message: "must have 4 entries"}
	}
	if len(translation) != 3 {
		return ProcessedFrame{}, &envelope.ValidationError{Field: "alignment.translation", Message: "must have 3 entries"}
	}

	frame.HoloFrame = holoFrame
	frame.Alignment = &Alignment{
		Quaternion:  append([]float64(nil), quaternion...),
		Translation: append([]float64(nil), translation...),
	}
	return frame, nil
}

// ExportFrames writes frames as line-delimited JSON for replay or
// downstream SDK consumption.
func ExportFrames(w io.Writer, frames []ProcessedFrame) error {
	for _, frame := range frames {
		line, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal processed frame: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write processed frame: %w", err)
		}
	}
	return nil
}

// Replay feeds recorded frames to a consumer in order, stopping at the
// first error or when ctx is done.
func Replay(ctx context.Context, frames []ProcessedFrame, consumer func(ProcessedFrame) error) error {
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := consumer(frame); err != nil {
			return err
		}
	}
	return nil
}

// BuildNormalizedStream runs the baseline emitters concurrently against the
// service and returns the normalized frames they produced.
func BuildNormalizedStream(ctx context.Context, service *Service, imuSamples []IMUSample, presses []bool, zoomValues []float64) ([]ProcessedFrame, error) {
	total := len(imuSamples) + len(presses) + len(zoomValues)
	normalizer := NewNormalizer(service, total)

	var group errgroup.Group
	group.Go(func() error { return EmitIMU(ctx, service, imuSamples) })
	group.Go(func() error { return EmitGamepad(ctx, service, presses) })
	group.Go(func() error { return EmitOSCMIDI(ctx, service, zoomValues) })
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return normalizer.Flush(total)
}
