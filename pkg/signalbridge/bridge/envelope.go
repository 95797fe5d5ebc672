package bridge

import (
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// Envelope is the unit handed to every sink of one dispatch: the validated
// payload, its derived metrics, a snapshot of the dispatch context, and the
// dispatch timestamp. Immutable once built; every sink observes the
// identical envelope.
type Envelope struct {
	Kind    envelope.Kind           `json:"kind"`
	Payload map[string]any          `json:"payload"`
	Derived envelope.DerivedMetrics `json:"derived"`
	Context Metadata                `json:"context"`

	// BridgedAt is seconds since the Unix epoch, matching the Signal Bus
	// wire format for timestamps.
	BridgedAt float64 `json:"bridged_at"`
}

// unixSeconds converts a time to the wire timestamp representation.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
