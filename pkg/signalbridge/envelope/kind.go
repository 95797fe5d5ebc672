package envelope

// Kind tags an envelope with its schema.
type Kind string

// The closed set of envelope kinds carried by the Signal Bus.
const (
	// KindEvent is a raw control event with a top-level payload block.
	KindEvent Kind = "event"

	// KindAgentFrame describes an agent orchestration frame with safety bounds.
	KindAgentFrame Kind = "agent_frame"

	// KindRenderConfig configures a render surface with capability overlays.
	KindRenderConfig Kind = "render_config"

	// KindHoloIntent requests holographic alignment for a render config.
	KindHoloIntent Kind = "holo_intent"

	// KindHoloFrame carries a spatial frame for holographic transport.
	KindHoloFrame Kind = "holo_frame"
)

// Kinds returns all envelope kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindEvent, KindAgentFrame, KindRenderConfig, KindHoloIntent, KindHoloFrame}
}
