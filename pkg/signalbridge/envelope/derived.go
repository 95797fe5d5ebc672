package envelope

import "math"

// DerivedMetrics are computed from minimal parameters and never persisted
// independently of the envelope that produced them.
type DerivedMetrics struct {
	PointerMagnitude float64 `json:"pointer_magnitude"`
	PointerAngle     float64 `json:"pointer_angle"`
	ZoomVelocity     float64 `json:"zoom_velocity"`
	RotationVelocity float64 `json:"rotation_velocity"`
	Triggered        bool    `json:"triggered"`
}

// Compute derives metrics from a minimal parameter record. The pointer angle
// is zero when the pointer delta is zero. Pure function, no hidden state.
func Compute(minimal MinimalParams) DerivedMetrics {
	dx, dy := minimal.PointerDelta.DX, minimal.PointerDelta.DY
	magnitude := math.Hypot(dx, dy)

	var angle float64
	if magnitude != 0 {
		angle = math.Atan2(dy, dx)
	}

	return DerivedMetrics{
		PointerMagnitude: magnitude,
		PointerAngle:     angle,
		ZoomVelocity:     minimal.ZoomDelta,
		RotationVelocity: minimal.RotDelta,
		Triggered:        minimal.InputTrigger,
	}
}
