package effects

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// DefaultSurface is the render surface used when none is given.
const DefaultSurface = "holographic"

// Layer is a feature-flagged effect layer with adjustable intensity.
type Layer struct {
	Name      string  `json:"name"`
	Enabled   bool    `json:"enabled"`
	Intensity float64 `json:"intensity"`
}

// Tile is one rendered energy cell of an effect frame.
type Tile struct {
	Layer   string  `json:"layer"`
	Surface string  `json:"surface"`
	Tile    int     `json:"tile"`
	Energy  float64 `json:"energy"`
}

// Frame is the structured output of one simulation step.
type Frame struct {
	FrameID      int                     `json:"frame_id"`
	Surface      string                  `json:"surface"`
	Timestamp    float64                 `json:"timestamp"`
	Minimal      envelope.MinimalParams  `json:"minimal"`
	Derived      envelope.DerivedMetrics `json:"derived"`
	Tiles        []Tile                  `json:"tiles"`
	Capabilities map[string]any          `json:"capabilities"`
}

// Slice is one volumetric slice generated from a tile.
type Slice struct {
	Layer   string  `json:"layer"`
	Slice   int     `json:"slice"`
	Energy  float64 `json:"energy"`
	Surface string  `json:"surface"`
	FrameID int     `json:"frame_id"`
}

// Engine is a deterministic effect simulator. Frame ids are assigned in
// generation order. It is safe for concurrent use.
type Engine struct {
	registry *envelope.Registry
	layers   []Layer
	tileSpan int
	now      func() time.Time

	mu     sync.Mutex
	frames []Frame
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTileSpan sets the number of tile slots layers cycle through.
// Defaults to 4.
func WithTileSpan(span int) EngineOption {
	return func(e *Engine) {
		e.tileSpan = span
	}
}

// WithEngineClock injects the frame-timestamp clock.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with the given layers. A nil registry uses
// the standard closed set of kinds.
func NewEngine(registry *envelope.Registry, layers []Layer, opts ...EngineOption) *Engine {
	if registry == nil {
		registry = envelope.NewRegistry()
	}
	e := &Engine{
		registry: registry,
		layers:   append([]Layer(nil), layers...),
		tileSpan: 4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateFrame validates the payload and produces a deterministic effect
// frame. An empty surface defaults to DefaultSurface.
func (e *Engine) GenerateFrame(kind envelope.Kind, payload map[string]any, dctx *bridge.Context, surface string) (Frame, error) {
	if err := e.registry.Validate(kind, payload); err != nil {
		return Frame{}, err
	}
	minimal, err := envelope.ExtractMinimal(kind, payload)
	if err != nil {
		return Frame{}, err
	}
	derived := envelope.Compute(minimal)

	if surface == "" {
		surface = DefaultSurface
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	frame := Frame{
		FrameID:      len(e.frames),
		Surface:      surface,
		Timestamp:    float64(e.now().UnixNano()) / float64(time.Second),
		Minimal:      minimal,
		Derived:      derived,
		Tiles:        e.buildTiles(baseEnergy(derived), surface),
		Capabilities: dctx.Capabilities,
	}
	e.frames = append(e.frames, frame)
	return frame, nil
}

// Frames returns the generated frames in frame-id order.
func (e *Engine) Frames() []Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Frame(nil), e.frames...)
}

// ExportFrames writes the accumulated frames as line-delimited JSON ordered
// by frame id.
func (e *Engine) ExportFrames(w io.Writer) error {
	for _, frame := range e.Frames() {
		line, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal effect frame: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write effect frame: %w", err)
		}
	}
	return nil
}

// baseEnergy folds the derived metrics into a single scalar: pointer
// magnitude plus absolute zoom and rotation velocities, plus a 0.5 boost
// while the trigger is held.
func baseEnergy(derived envelope.DerivedMetrics) float64 {
	energy := derived.PointerMagnitude + math.Abs(derived.ZoomVelocity) + math.Abs(derived.RotationVelocity)
	if derived.Triggered {
		energy += 0.5
	}
	return energy
}

// buildTiles produces one tile per enabled layer, cycling tile slots
// through the configured span.
func (e *Engine) buildTiles(base float64, surface string) []Tile {
	span := e.tileSpan
	if span < 1 {
		span = 1
	}

	var tiles []Tile
	for idx, layer := range e.layers {
		if !layer.Enabled {
			continue
		}
		tiles = append(tiles, Tile{
			Layer:   layer.Name,
			Surface: surface,
			Tile:    idx % span,
			Energy:  round4(base * layer.Intensity),
		})
	}
	return tiles
}

// VolumetricSlices expands a frame's tiles into depth-indexed slices for
// holographic playback.
func VolumetricSlices(frame Frame, depth int) []Slice {
	var slices []Slice
	for _, tile := range frame.Tiles {
		for z := range depth {
			slices = append(slices, Slice{
				Layer:   tile.Layer,
				Slice:   z,
				Energy:  tile.Energy,
				Surface: frame.Surface,
				FrameID: frame.FrameID,
			})
		}
	}
	return slices
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
