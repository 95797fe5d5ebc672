package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
)

// statusRecorder collects status callback invocations.
type statusRecorder struct {
	calls []statusCall
}

type statusCall struct {
	sink   string
	status bridge.SendStatus
	detail string
}

func (r *statusRecorder) record(sink string, status bridge.SendStatus, detail string) {
	r.calls = append(r.calls, statusCall{sink: sink, status: status, detail: detail})
}

// frameRecorder collects replay-hook invocations.
type frameRecorder struct {
	frames []string
}

func (r *frameRecorder) Record(sink string, _ *bridge.Envelope) {
	r.frames = append(r.frames, sink)
}

func testEnvelope() *bridge.Envelope {
	return &bridge.Envelope{
		Kind:    envelope.KindEvent,
		Payload: map[string]any{"type": "test"},
		Derived: envelope.DerivedMetrics{PointerMagnitude: 5},
		Context: bridge.Metadata{SessionID: "s1", SDKSurface: "unity", Capabilities: map[string]any{}},
	}
}

// TestTransportSinkDispatched verifies the happy path: one status callback,
// one replay frame, no captured errors.
func TestTransportSinkDispatched(t *testing.T) {
	var sent int
	status := &statusRecorder{}
	replay := &frameRecorder{}

	sink := bridge.NewTransportSink("unity",
		func(context.Context, *bridge.Envelope, *bridge.Context) error {
			sent++
			return nil
		},
		bridge.WithRecorder(replay),
	)

	err := sink.SendObserved(context.Background(), testEnvelope(), bridge.NewContext("s1", "unity", nil), status.record)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []statusCall{{sink: "unity", status: bridge.StatusDispatched}}, status.calls)
	assert.Equal(t, []string{"unity"}, replay.frames)
	assert.Empty(t, sink.ErrorLog())
}

// TestTransportSinkRateLimited verifies the pre-check short-circuits before
// the transport primitive runs.
func TestTransportSinkRateLimited(t *testing.T) {
	var sent int
	status := &statusRecorder{}

	sink := bridge.NewTransportSink("unity",
		func(context.Context, *bridge.Envelope, *bridge.Context) error {
			sent++
			return nil
		},
		bridge.WithRateLimiter(bridge.NewRateLimiter(0, 0)),
	)

	err := sink.SendObserved(context.Background(), testEnvelope(), bridge.NewContext("s1", "unity", nil), status.record)
	require.NoError(t, err)

	assert.Zero(t, sent, "transport primitive must not run when rate limited")
	assert.Equal(t, []statusCall{{sink: "unity", status: bridge.StatusRateLimited, detail: "rate_limited"}}, status.calls)

	log := sink.ErrorLog()
	require.Len(t, log, 1)
	assert.Equal(t, "rate_limited", log[0].Error)
}

// TestTransportSinkCapturesErrors verifies transport failures are captured,
// reported, and never propagated.
func TestTransportSinkCapturesErrors(t *testing.T) {
	status := &statusRecorder{}
	replay := &frameRecorder{}

	sink := bridge.NewTransportSink("unreal",
		func(context.Context, *bridge.Envelope, *bridge.Context) error {
			return errors.New("socket closed")
		},
		bridge.WithRecorder(replay),
	)

	err := sink.SendObserved(context.Background(), testEnvelope(), bridge.NewContext("s1", "unreal", nil), status.record)
	require.NoError(t, err, "transport failures must not propagate")

	assert.Equal(t, []statusCall{{sink: "unreal", status: bridge.StatusError, detail: "socket closed"}}, status.calls)
	assert.Empty(t, replay.frames, "failed sends are not replayed")

	log := sink.ErrorLog()
	require.Len(t, log, 1)
	assert.Equal(t, "unreal", log[0].Sink)
	assert.Equal(t, "socket closed", log[0].Error)
}

// TestTransportSinkDefaultStatus verifies Send falls back to the
// constructor-supplied callback.
func TestTransportSinkDefaultStatus(t *testing.T) {
	status := &statusRecorder{}
	sink := bridge.NewTransportSink("holo",
		func(context.Context, *bridge.Envelope, *bridge.Context) error { return nil },
		bridge.WithStatusFunc(status.record),
	)

	require.NoError(t, sink.Send(context.Background(), testEnvelope(), bridge.NewContext("s1", "holo", nil)))
	assert.Equal(t, []statusCall{{sink: "holo", status: bridge.StatusDispatched}}, status.calls)
}

// TestUDPSinkWireFormat verifies the datagram wraps context metadata and the
// envelope under the contract field names.
func TestUDPSinkWireFormat(t *testing.T) {
	var gotAddr string
	var gotPayload []byte

	sink := bridge.NewUDPSink("unity", "127.0.0.1:9000",
		func(_ context.Context, addr string, payload []byte) error {
			gotAddr = addr
			gotPayload = payload
			return nil
		},
	)

	dctx := bridge.NewContext("session-1", "unity", map[string]any{"overlay": true})
	require.NoError(t, sink.Send(context.Background(), testEnvelope(), dctx))
	assert.Equal(t, "127.0.0.1:9000", gotAddr)

	var packet map[string]any
	require.NoError(t, json.Unmarshal(gotPayload, &packet))

	wireCtx := packet["context"].(map[string]any)
	assert.Equal(t, "session-1", wireCtx["session_id"])
	assert.Equal(t, "unity", wireCtx["sdk_surface"])

	wireEnv := packet["envelope"].(map[string]any)
	assert.Equal(t, "event", wireEnv["kind"])
	assert.Contains(t, wireEnv, "derived")
	assert.Contains(t, wireEnv, "bridged_at")
}

// TestOSCSinkWireFormat verifies the address-pattern wrapping.
func TestOSCSinkWireFormat(t *testing.T) {
	var gotPayload []byte

	sink := bridge.NewOSCSink("overlay", "/bridge/envelope", "127.0.0.1:8000",
		func(_ context.Context, _ string, payload []byte) error {
			gotPayload = payload
			return nil
		},
		nil,
	)

	dctx := bridge.NewContext("session-2", "touchdesigner", nil)
	require.NoError(t, sink.Send(context.Background(), testEnvelope(), dctx))

	var packet map[string]any
	require.NoError(t, json.Unmarshal(gotPayload, &packet))
	assert.Equal(t, "/bridge/envelope", packet["address"])

	inner := packet["envelope"].(map[string]any)
	assert.Contains(t, inner, "context")
	assert.Contains(t, inner, "payload")
}

// TestGRPCSinkPayload verifies the stub receives a plain map with context,
// envelope, and capabilities.
func TestGRPCSinkPayload(t *testing.T) {
	var got map[string]any

	sink := bridge.NewGRPCSink("holo", func(_ context.Context, payload map[string]any) error {
		got = payload
		return nil
	})

	dctx := bridge.NewContext("session-3", "holographic", map[string]any{"depth": 3.0})
	require.NoError(t, sink.Send(context.Background(), testEnvelope(), dctx))

	require.NotNil(t, got)
	assert.Equal(t, map[string]any{"depth": 3.0}, got["capabilities"])

	meta := got["context"].(map[string]any)
	assert.Equal(t, "session-3", meta["session_id"])

	env := got["envelope"].(map[string]any)
	assert.Equal(t, "event", env["kind"])
}

// TestMemorySink verifies the test sink records every delivery.
func TestMemorySink(t *testing.T) {
	sink := bridge.NewMemorySink("memory")
	dctx := bridge.NewContext("s1", "test", nil)
	env := testEnvelope()

	require.NoError(t, sink.Send(context.Background(), env, dctx))
	require.NoError(t, sink.Send(context.Background(), env, dctx))

	received := sink.Received()
	require.Len(t, received, 2)
	assert.Same(t, env, received[0].Envelope)
	assert.Same(t, dctx, received[0].Context)
}
