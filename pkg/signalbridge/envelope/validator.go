package envelope

import (
	"fmt"
	"strings"
)

// ValidatorFunc validates a single payload shape.
type ValidatorFunc func(payload map[string]any) error

// Registry maps envelope kinds to their validators. It is built once and
// injected wherever validation is needed; the mapping never changes after
// construction.
type Registry struct {
	validators map[Kind]ValidatorFunc
}

// NewRegistry returns a registry covering every kind in the closed set.
func NewRegistry() *Registry {
	return &Registry{
		validators: map[Kind]ValidatorFunc{
			KindEvent:        ValidateEvent,
			KindAgentFrame:   ValidateAgentFrame,
			KindRenderConfig: ValidateRenderConfig,
			KindHoloIntent:   ValidateHoloIntent,
			KindHoloFrame:    ValidateHoloFrame,
		},
	}
}

// Validate checks a payload against the validator registered for kind.
// It returns an *UnsupportedKindError for unknown kinds and a
// *ValidationError describing the first offending field otherwise.
// The payload is never mutated.
func (r *Registry) Validate(kind Kind, payload map[string]any) error {
	validator, ok := r.validators[kind]
	if !ok {
		return &UnsupportedKindError{Kind: kind}
	}
	return validator(payload)
}

// Has reports whether a validator exists for kind.
func (r *Registry) Has(kind Kind) bool {
	_, ok := r.validators[kind]
	return ok
}

// ValidateMinimal checks the minimal parameter block shared by every kind:
// a numeric dx/dy pointer delta, numeric zoom and rotation deltas, a strictly
// boolean trigger, and an optional spatial frame.
func ValidateMinimal(payload map[string]any) error {
	data, err := assertMap(payload, "payload")
	if err != nil {
		return err
	}

	pointer, err := assertMap(data["POINTER_DELTA"], "POINTER_DELTA")
	if err != nil {
		return err
	}
	for _, axis := range []string{"dx", "dy"} {
		if err := assertNumber(pointer[axis], "POINTER_DELTA."+axis); err != nil {
			return err
		}
	}

	if err := assertNumber(data["ZOOM_DELTA"], "ZOOM_DELTA"); err != nil {
		return err
	}
	if err := assertNumber(data["ROT_DELTA"], "ROT_DELTA"); err != nil {
		return err
	}
	if err := assertBool(data["INPUT_TRIGGER"], "INPUT_TRIGGER"); err != nil {
		return err
	}

	if frame, present := data["HOLO_FRAME"]; present && frame != nil {
		frameMap, err := assertMap(frame, "HOLO_FRAME")
		if err != nil {
			return err
		}
		return validateSpatialFrame(frameMap, "HOLO_FRAME")
	}
	return nil
}

// ValidateEvent checks an event payload: a non-empty type, a numeric source
// timestamp, and a nested minimal parameter block.
func ValidateEvent(payload map[string]any) error {
	data, err := assertMap(payload, "event")
	if err != nil {
		return err
	}
	if err := assertString(data["type"], "type"); err != nil {
		return err
	}
	if err := assertNumber(data["timestamp"], "timestamp"); err != nil {
		return err
	}
	inner, err := assertMap(data["payload"], "payload")
	if err != nil {
		return err
	}
	return ValidateMinimal(inner)
}

// ValidateAgentFrame checks an agent orchestration frame.
func ValidateAgentFrame(payload map[string]any) error {
	data, err := assertMap(payload, "agent_frame")
	if err != nil {
		return err
	}
	for _, field := range []string{"role", "goal", "sdk_surface"} {
		if err := assertString(data[field], field); err != nil {
			return err
		}
	}

	bounds, err := assertMap(data["bounds"], "bounds")
	if err != nil {
		return err
	}
	for _, axis := range []string{"x", "y", "z"} {
		if err := assertNumber(bounds[axis], "bounds."+axis); err != nil {
			return err
		}
	}

	focus, err := assertMap(data["focus"], "focus")
	if err != nil {
		return err
	}
	if err := assertString(focus["path"], "focus.path"); err != nil {
		return err
	}

	inputs, err := assertMap(data["inputs"], "inputs")
	if err != nil {
		return err
	}
	if err := ValidateMinimal(inputs); err != nil {
		return err
	}

	outputs, err := assertSlice(data["outputs"], "outputs")
	if err != nil {
		return err
	}
	for i, output := range outputs {
		if err := assertString(output, fmt.Sprintf("outputs[%d]", i)); err != nil {
			return err
		}
	}

	safety, err := assertMap(data["safety"], "safety")
	if err != nil {
		return err
	}
	for _, field := range []string{"spawn_bounds", "rate_limit"} {
		if err := assertNumber(safety[field], "safety."+field); err != nil {
			return err
		}
	}
	// rejection_reason is optional; empty string means no rejection occurred.
	if reason, present := safety["rejection_reason"]; present && reason != "" {
		if err := assertString(reason, "safety.rejection_reason"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRenderConfig checks a render surface configuration.
func ValidateRenderConfig(payload map[string]any) error {
	data, err := assertMap(payload, "render_config")
	if err != nil {
		return err
	}
	if err := assertString(data["surface"], "surface"); err != nil {
		return err
	}
	if err := assertString(data["schema"], "schema"); err != nil {
		return err
	}
	inputs, err := assertMap(data["inputs"], "inputs")
	if err != nil {
		return err
	}
	if err := ValidateMinimal(inputs); err != nil {
		return err
	}
	overlays, err := assertMap(data["overlays"], "overlays")
	if err != nil {
		return err
	}
	return assertBool(overlays["capability"], "overlays.capability")
}

// ValidateHoloIntent checks a holographic alignment intent: non-empty frame
// and surface names, a valid nested render config, and a 4/3-length
// alignment record.
func ValidateHoloIntent(payload map[string]any) error {
	data, err := assertMap(payload, "holo_intent")
	if err != nil {
		return err
	}
	if err := assertString(data["holo_frame"], "holo_frame"); err != nil {
		return err
	}
	if err := assertString(data["sdk_surface"], "sdk_surface"); err != nil {
		return err
	}
	renderConfig, err := assertMap(data["render_config"], "render_config")
	if err != nil {
		return err
	}
	if err := ValidateRenderConfig(renderConfig); err != nil {
		return err
	}

	alignment, err := assertMap(data["alignment"], "alignment")
	if err != nil {
		return err
	}
	if err := assertNumberArray(alignment["quaternion"], "alignment.quaternion", 4); err != nil {
		return err
	}
	return assertNumberArray(alignment["translation"], "alignment.translation", 3)
}

// ValidateHoloFrame checks a spatial transport frame with its minimal inputs.
func ValidateHoloFrame(payload map[string]any) error {
	data, err := assertMap(payload, "holo_frame")
	if err != nil {
		return err
	}
	inputs, err := assertMap(data["inputs"], "inputs")
	if err != nil {
		return err
	}
	if err := ValidateMinimal(inputs); err != nil {
		return err
	}
	frame, err := assertMap(data["frame"], "frame")
	if err != nil {
		return err
	}
	return validateSpatialFrame(frame, "frame")
}

// validateSpatialFrame checks a quaternion/translation record and its
// anchoring surface.
func validateSpatialFrame(frame map[string]any, path string) error {
	if err := assertNumberArray(frame["quaternion"], path+".quaternion", 4); err != nil {
		return err
	}
	if err := assertNumberArray(frame["translation"], path+".translation", 3); err != nil {
		return err
	}
	return assertString(frame["surface"], path+".surface")
}

func assertNumber(value any, path string) error {
	if _, ok := asNumber(value); !ok {
		return &ValidationError{Field: path, Message: "must be a number"}
	}
	return nil
}

func assertBool(value any, path string) error {
	if _, ok := value.(bool); !ok {
		return &ValidationError{Field: path, Message: "must be a boolean"}
	}
	return nil
}

func assertString(value any, path string) error {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return &ValidationError{Field: path, Message: "must be a non-empty string"}
	}
	return nil
}

func assertMap(value any, path string) (map[string]any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: path, Message: "must be an object"}
	}
	return m, nil
}

func assertSlice(value any, path string) ([]any, error) {
	s, ok := value.([]any)
	if !ok {
		return nil, &ValidationError{Field: path, Message: "must be an array"}
	}
	return s, nil
}

func assertNumberArray(value any, path string, length int) error {
	entries, err := assertSlice(value, path)
	if err != nil {
		return err
	}
	if len(entries) != length {
		return &ValidationError{Field: path, Message: fmt.Sprintf("must have %d entries", length)}
	}
	for i, entry := range entries {
		if err := assertNumber(entry, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// asNumber accepts the numeric types a decoded JSON payload or an in-process
// caller may carry. Strings and booleans are never coerced.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}
