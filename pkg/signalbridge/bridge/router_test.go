package bridge_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

func validEventPayload() map[string]any {
	return map[string]any{
		"type":      "imu_frame",
		"timestamp": 10.0,
		"payload": map[string]any{
			"POINTER_DELTA": map[string]any{"dx": 3.0, "dy": 4.0},
			"ZOOM_DELTA":    0.2,
			"ROT_DELTA":     0.1,
			"INPUT_TRIGGER": false,
		},
	}
}

// TestDispatchFanOut verifies dispatch reaches every registered sink exactly
// once per call, with the identical envelope.
func TestDispatchFanOut(t *testing.T) {
	router := bridge.NewRouter(nil)
	sinks := []*bridge.MemorySink{
		bridge.NewMemorySink("unity"),
		bridge.NewMemorySink("unreal"),
		bridge.NewMemorySink("holo"),
	}
	for _, sink := range sinks {
		require.NoError(t, router.AddSink(sink))
	}

	dctx := bridge.NewContext("session-1", "unity", nil)
	require.NoError(t, router.Dispatch(context.Background(), envelope.KindEvent, validEventPayload(), dctx))
	require.NoError(t, router.Dispatch(context.Background(), envelope.KindEvent, validEventPayload(), dctx))

	var first *bridge.Envelope
	for _, sink := range sinks {
		received := sink.Received()
		require.Len(t, received, 2, "sink %s", sink.Name())
		if first == nil {
			first = received[0].Envelope
		}
		assert.Same(t, first, received[0].Envelope, "all sinks observe the identical envelope")
	}
}

// TestDispatchDerivedMetrics verifies the assembled envelope carries the
// derived metrics: pointer (3,4) yields magnitude 5.
func TestDispatchDerivedMetrics(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	router := bridge.NewRouter(nil, bridge.WithClock(func() time.Time { return fixed }))
	sink := bridge.NewMemorySink("unity")
	require.NoError(t, router.AddSink(sink))

	dctx := bridge.NewContext("session-1", "unity", map[string]any{"overlay": true})
	require.NoError(t, router.Dispatch(context.Background(), envelope.KindEvent, validEventPayload(), dctx))

	received := sink.Received()
	require.Len(t, received, 1)
	env := received[0].Envelope

	assert.Equal(t, envelope.KindEvent, env.Kind)
	assert.Equal(t, 5.0, env.Derived.PointerMagnitude)
	assert.InDelta(t, math.Atan2(4, 3), env.Derived.PointerAngle, 1e-12)
	assert.Equal(t, 0.2, env.Derived.ZoomVelocity)
	assert.Equal(t, 0.1, env.Derived.RotationVelocity)
	assert.False(t, env.Derived.Triggered)
	assert.Equal(t, "session-1", env.Context.SessionID)
	assert.Equal(t, float64(1700000000), env.BridgedAt)
}

// TestDispatchValidationFailsFast verifies no sink is touched when
// validation fails.
func TestDispatchValidationFailsFast(t *testing.T) {
	router := bridge.NewRouter(nil)
	sink := bridge.NewMemorySink("unity")
	require.NoError(t, router.AddSink(sink))

	payload := validEventPayload()
	delete(payload["payload"].(map[string]any), "ZOOM_DELTA")

	err := router.Dispatch(context.Background(), envelope.KindEvent, payload, bridge.NewContext("s", "unity", nil))

	var verr *envelope.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ZOOM_DELTA", verr.Field)
	assert.Empty(t, sink.Received())
}

// TestDispatchUnsupportedKind verifies unknown kinds abort before fan-out.
func TestDispatchUnsupportedKind(t *testing.T) {
	router := bridge.NewRouter(nil)
	sink := bridge.NewMemorySink("unity")
	require.NoError(t, router.AddSink(sink))

	err := router.Dispatch(context.Background(), "mystery", validEventPayload(), bridge.NewContext("s", "unity", nil))

	var unsupported *envelope.UnsupportedKindError
	require.ErrorAs(t, err, &unsupported)
	assert.Empty(t, sink.Received())
}

// TestAddSinkDuplicate verifies duplicate registration fails and leaves the
// sink set unchanged.
func TestAddSinkDuplicate(t *testing.T) {
	router := bridge.NewRouter(nil)
	require.NoError(t, router.AddSink(bridge.NewMemorySink("unity")))

	err := router.AddSink(bridge.NewMemorySink("unity"))

	var dup *bridge.DuplicateSinkError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "unity", dup.Name)
	assert.Len(t, router.Sinks(), 1)
}

// TestDispatchSinkFailureDoesNotBlockSiblings verifies a failing bare sink
// surfaces its error while sibling sinks still receive the envelope.
func TestDispatchSinkFailureDoesNotBlockSiblings(t *testing.T) {
	router := bridge.NewRouter(nil)

	var failures atomic.Int32
	failing := bridge.NewFuncSink("broken", func(context.Context, *bridge.Envelope, *bridge.Context) error {
		failures.Add(1)
		return errors.New("boom")
	})
	healthy := bridge.NewMemorySink("healthy")

	require.NoError(t, router.AddSink(failing))
	require.NoError(t, router.AddSink(healthy))

	err := router.Dispatch(context.Background(), envelope.KindEvent, validEventPayload(), bridge.NewContext("s", "unity", nil))
	require.EqualError(t, err, "boom")

	assert.Equal(t, int32(1), failures.Load())
	assert.Len(t, healthy.Received(), 1, "sibling delivery proceeds despite the failure")
}

// TestNewContextDefaults verifies session id generation and capability map
// normalization.
func TestNewContextDefaults(t *testing.T) {
	dctx := bridge.NewContext("", "unity", nil)

	assert.NotEmpty(t, dctx.SessionID)
	assert.NotNil(t, dctx.Capabilities)
	assert.False(t, dctx.StartedAt.IsZero())

	other := bridge.NewContext("", "unity", nil)
	assert.NotEqual(t, dctx.SessionID, other.SessionID)
}
