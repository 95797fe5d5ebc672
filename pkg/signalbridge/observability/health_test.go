package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/observability"
)

// TestHealthMonitorCounters verifies per-sink accounting across all three
// statuses.
func TestHealthMonitorCounters(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	monitor := observability.NewHealthMonitor(observability.WithMonitorClock(func() time.Time { return fixed }))

	monitor.Record("unity", bridge.StatusDispatched, "")
	monitor.Record("unity", bridge.StatusDispatched, "")
	monitor.Record("unity", bridge.StatusRateLimited, "rate_limited")
	monitor.Record("unreal", bridge.StatusError, "socket closed")

	pulse := monitor.Pulse()

	unity := pulse.Sinks["unity"]
	assert.Equal(t, 2, unity.Dispatched)
	assert.Equal(t, 1, unity.RateLimited)
	assert.Zero(t, unity.Errors)
	assert.Equal(t, bridge.StatusRateLimited, unity.LastStatus)
	assert.Equal(t, float64(1700000000), unity.UpdatedAt)

	unreal := pulse.Sinks["unreal"]
	assert.Equal(t, 1, unreal.Errors)
	assert.Equal(t, bridge.StatusError, unreal.LastStatus)

	require.Len(t, pulse.Errors, 1)
	assert.Equal(t, "unreal", pulse.Errors[0].Sink)
	assert.Equal(t, "socket closed", pulse.Errors[0].Error)
}

// TestHealthMonitorPulseIsSnapshot verifies mutating the returned pulse does
// not affect the monitor.
func TestHealthMonitorPulseIsSnapshot(t *testing.T) {
	monitor := observability.NewHealthMonitor()
	monitor.Record("unity", bridge.StatusDispatched, "")

	pulse := monitor.Pulse()
	pulse.Sinks["unity"] = observability.SinkHealth{Dispatched: 99}

	assert.Equal(t, 1, monitor.Pulse().Sinks["unity"].Dispatched)
}

// TestHealthMonitorUnknownStatusPanics verifies an unknown status is treated
// as a programming error.
func TestHealthMonitorUnknownStatusPanics(t *testing.T) {
	monitor := observability.NewHealthMonitor()

	assert.Panics(t, func() {
		monitor.Record("unity", bridge.SendStatus("mystery"), "")
	})
}
