package pipeline

import (
	"context"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// IMUSample is one wearable IMU reading: pointer deltas plus rotation.
type IMUSample struct {
	DX  float64
	DY  float64
	Rot float64
}

// EmitIMU publishes POINTER_DELTA updates from IMU-like dx/dy/rotation
// samples.
func EmitIMU(ctx context.Context, service *Service, samples []IMUSample) error {
	for _, sample := range samples {
		payload := eventPayload(service, "imu_frame", map[string]any{
			"POINTER_DELTA": map[string]any{"dx": sample.DX, "dy": sample.DY},
			"ZOOM_DELTA":    0.0,
			"ROT_DELTA":     sample.Rot,
			"INPUT_TRIGGER": false,
		})
		if _, err := service.Publish(ctx, envelope.KindEvent, payload); err != nil {
			return err
		}
	}
	return nil
}

// EmitGamepad publishes INPUT_TRIGGER toggles from a gamepad button.
func EmitGamepad(ctx context.Context, service *Service, presses []bool) error {
	for _, pressed := range presses {
		payload := eventPayload(service, "gamepad_button", map[string]any{
			"POINTER_DELTA": map[string]any{"dx": 0.0, "dy": 0.0},
			"ZOOM_DELTA":    0.0,
			"ROT_DELTA":     0.0,
			"INPUT_TRIGGER": pressed,
		})
		if _, err := service.Publish(ctx, envelope.KindEvent, payload); err != nil {
			return err
		}
	}
	return nil
}

// EmitOSCMIDI publishes ZOOM_DELTA samples mimicking OSC/MIDI control input.
func EmitOSCMIDI(ctx context.Context, service *Service, zoomValues []float64) error {
	for _, zoom := range zoomValues {
		payload := eventPayload(service, "osc_midi", map[string]any{
			"POINTER_DELTA": map[string]any{"dx": 0.0, "dy": 0.0},
			"ZOOM_DELTA":    zoom,
			"ROT_DELTA":     0.0,
			"INPUT_TRIGGER": false,
		})
		if _, err := service.Publish(ctx, envelope.KindEvent, payload); err != nil {
			return err
		}
	}
	return nil
}

func eventPayload(service *Service, eventType string, minimal map[string]any) map[string]any {
	return map[string]any{
		"type":      eventType,
		"timestamp": service.timestamp(),
		"payload":   minimal,
	}
}
