package envelope

// PointerDelta is a 2D pointer movement delta.
type PointerDelta struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// SpatialFrame is an optional spatial alignment sub-record: a 4-component
// orientation quaternion and a 3-component translation, plus the surface
// the frame is anchored to.
type SpatialFrame struct {
	Quaternion  []float64 `json:"quaternion"`
	Translation []float64 `json:"translation"`
	Surface     string    `json:"surface,omitempty"`
}

// MinimalParams is the canonical control-state record shared by every
// envelope kind. JSON tags reproduce the Signal Bus wire names.
type MinimalParams struct {
	PointerDelta PointerDelta  `json:"POINTER_DELTA"`
	ZoomDelta    float64       `json:"ZOOM_DELTA"`
	RotDelta     float64       `json:"ROT_DELTA"`
	InputTrigger bool          `json:"INPUT_TRIGGER"`
	HoloFrame    *SpatialFrame `json:"HOLO_FRAME,omitempty"`
}

// ExtractMinimal locates the minimal parameter block inside a payload
// according to the kind's nesting convention and converts it to a typed
// record. The nesting rules mirror the validators exactly:
//
//	event                payload
//	agent_frame          inputs
//	render_config        inputs
//	holo_intent          render_config.inputs
//	holo_frame           inputs
//
// Missing numeric fields default to zero; callers should validate first.
func ExtractMinimal(kind Kind, payload map[string]any) (MinimalParams, error) {
	var block map[string]any
	switch kind {
	case KindEvent:
		block = childMap(payload, "payload")
	case KindAgentFrame, KindRenderConfig, KindHoloFrame:
		block = childMap(payload, "inputs")
	case KindHoloIntent:
		block = childMap(childMap(payload, "render_config"), "inputs")
	default:
		return MinimalParams{}, &UnsupportedKindError{Kind: kind}
	}
	return minimalFromMap(block), nil
}

// minimalFromMap converts a raw minimal-parameter block into a typed record.
func minimalFromMap(block map[string]any) MinimalParams {
	pointer := childMap(block, "POINTER_DELTA")
	params := MinimalParams{
		PointerDelta: PointerDelta{
			DX: numberOrZero(pointer["dx"]),
			DY: numberOrZero(pointer["dy"]),
		},
		ZoomDelta: numberOrZero(block["ZOOM_DELTA"]),
		RotDelta:  numberOrZero(block["ROT_DELTA"]),
	}
	if trigger, ok := block["INPUT_TRIGGER"].(bool); ok {
		params.InputTrigger = trigger
	}
	if frame := childMap(block, "HOLO_FRAME"); frame != nil {
		params.HoloFrame = &SpatialFrame{
			Quaternion:  numberSlice(frame["quaternion"]),
			Translation: numberSlice(frame["translation"]),
		}
		if surface, ok := frame["surface"].(string); ok {
			params.HoloFrame.Surface = surface
		}
	}
	return params
}

func childMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return nil
	}
	child, _ := parent[key].(map[string]any)
	return child
}

func numberOrZero(v any) float64 {
	f, _ := asNumber(v)
	return f
}

func numberSlice(v any) []float64 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	values := make([]float64, 0, len(raw))
	for _, entry := range raw {
		values = append(values, numberOrZero(entry))
	}
	return values
}
