package perf

import (
	"io"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/observability"
)

// KindMetrics is the per-kind slice of a performance report.
type KindMetrics struct {
	Samples int `json:"samples"`
	LatencyMetrics
}

// PerformanceReport aggregates latency metrics from a contract log stream,
// overall and per envelope kind.
type PerformanceReport struct {
	Ingested int                           `json:"ingested"`
	Overall  KindMetrics                   `json:"overall"`
	ByKind   map[envelope.Kind]KindMetrics `json:"by_kind"`
}

// Report re-ingests contract log records through performance monitors and
// aggregates their latencies. Each record's minimal parameters are hydrated
// back into a full payload so the standard validation path applies. A nil
// registry uses the standard closed set of kinds.
func Report(registry *envelope.Registry, records []observability.Record, opts ...MonitorOption) (*PerformanceReport, error) {
	if registry == nil {
		registry = envelope.NewRegistry()
	}

	overall := NewMonitor(registry, DefaultBufferCapacity, opts...)
	byKind := make(map[envelope.Kind]*Monitor)
	ingested := 0

	for _, record := range records {
		if record.Kind == "" {
			return nil, &envelope.ValidationError{Field: "kind", Message: "contract record missing kind"}
		}

		timestamp := record.BridgedAt
		if timestamp == 0 {
			timestamp = record.Timestamp
		}

		dctx := bridge.NewContext(record.SessionID, record.SDKSurface, record.Capabilities)
		payload, err := hydratePayload(record.Kind, record.Minimal, timestamp, record.SDKSurface)
		if err != nil {
			return nil, err
		}

		if _, err := overall.Ingest(record.Kind, payload, dctx); err != nil {
			return nil, err
		}
		monitor, ok := byKind[record.Kind]
		if !ok {
			monitor = NewMonitor(registry, DefaultBufferCapacity, opts...)
			byKind[record.Kind] = monitor
		}
		if _, err := monitor.Ingest(record.Kind, payload, dctx); err != nil {
			return nil, err
		}
		ingested++
	}

	report := &PerformanceReport{
		Ingested: ingested,
		Overall: KindMetrics{
			Samples:        len(overall.Samples()),
			LatencyMetrics: overall.LatencyMetrics(),
		},
		ByKind: make(map[envelope.Kind]KindMetrics, len(byKind)),
	}
	for kind, monitor := range byKind {
		report.ByKind[kind] = KindMetrics{
			Samples:        len(monitor.Samples()),
			LatencyMetrics: monitor.LatencyMetrics(),
		}
	}
	return report, nil
}

// ReportFromLog parses a contract log stream and generates its report.
func ReportFromLog(registry *envelope.Registry, r io.Reader, opts ...MonitorOption) (*PerformanceReport, error) {
	records, err := observability.ParseRecords(r)
	if err != nil {
		return nil, err
	}
	return Report(registry, records, opts...)
}

// hydratePayload rebuilds a minimal parameter record into a payload that
// satisfies the kind's validator, nesting the block per the kind's
// convention and filling the remaining required fields with observer
// placeholders.
func hydratePayload(kind envelope.Kind, minimal envelope.MinimalParams, timestamp float64, sdkSurface string) (map[string]any, error) {
	block := minimalBlock(minimal)
	if sdkSurface == "" {
		sdkSurface = "unknown"
	}

	switch kind {
	case envelope.KindEvent:
		return map[string]any{
			"type":      "observed",
			"timestamp": timestamp,
			"payload":   block,
		}, nil

	case envelope.KindAgentFrame:
		return map[string]any{
			"role":        "observer",
			"goal":        "latency_replay",
			"sdk_surface": sdkSurface,
			"bounds":      map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
			"focus":       map[string]any{"path": "observed"},
			"inputs":      block,
			"outputs":     []any{"telemetry"},
			"safety":      map[string]any{"spawn_bounds": 0.0, "rate_limit": 0.0, "rejection_reason": ""},
		}, nil

	case envelope.KindRenderConfig:
		return renderConfigPayload(block, sdkSurface), nil

	case envelope.KindHoloIntent:
		return map[string]any{
			"holo_frame":    "observed",
			"sdk_surface":   sdkSurface,
			"render_config": renderConfigPayload(block, sdkSurface),
			"alignment": map[string]any{
				"quaternion":  []any{0.0, 0.0, 0.0, 1.0},
				"translation": []any{0.0, 0.0, 0.0},
			},
		}, nil

	case envelope.KindHoloFrame:
		return map[string]any{
			"inputs": block,
			"frame":  spatialFrameMap(minimal.HoloFrame, sdkSurface),
		}, nil

	default:
		return nil, &envelope.UnsupportedKindError{Kind: kind}
	}
}

func renderConfigPayload(block map[string]any, sdkSurface string) map[string]any {
	return map[string]any{
		"surface":  sdkSurface,
		"schema":   "observed",
		"inputs":   block,
		"overlays": map[string]any{"capability": true},
	}
}

// minimalBlock converts a typed minimal record back to its wire shape.
func minimalBlock(minimal envelope.MinimalParams) map[string]any {
	block := map[string]any{
		"POINTER_DELTA": map[string]any{
			"dx": minimal.PointerDelta.DX,
			"dy": minimal.PointerDelta.DY,
		},
		"ZOOM_DELTA":    minimal.ZoomDelta,
		"ROT_DELTA":     minimal.RotDelta,
		"INPUT_TRIGGER": minimal.InputTrigger,
	}
	if minimal.HoloFrame != nil {
		block["HOLO_FRAME"] = spatialFrameMap(minimal.HoloFrame, minimal.HoloFrame.Surface)
	}
	return block
}

// spatialFrameMap converts a spatial frame to its wire shape, defaulting to
// an identity orientation when absent.
func spatialFrameMap(frame *envelope.SpatialFrame, surface string) map[string]any {
	quaternion := []float64{0, 0, 0, 1}
	translation := []float64{0, 0, 0}
	if frame != nil {
		if len(frame.Quaternion) == 4 {
			quaternion = frame.Quaternion
		}
		if len(frame.Translation) == 3 {
			translation = frame.Translation
		}
		if frame.Surface != "" {
			surface = frame.Surface
		}
	}
	if surface == "" {
		surface = "unknown"
	}
	return map[string]any{
		"quaternion":  toAnySlice(quaternion),
		"translation": toAnySlice(translation),
		"surface":     surface,
	}
}

func toAnySlice(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
