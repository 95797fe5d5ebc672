package observability_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/observability"
)

func contractEnvelope() *bridge.Envelope {
	return &bridge.Envelope{
		Kind:    envelope.KindEvent,
		Payload: map[string]any{"type": "imu_frame"},
		Derived: envelope.DerivedMetrics{PointerMagnitude: 5, PointerAngle: 0.9272952180016122},
		Context: bridge.Metadata{
			SessionID:    "session-1",
			SDKSurface:   "unity",
			Capabilities: map[string]any{"overlay": true},
		},
		BridgedAt: 1700000000.5,
	}
}

func contractMinimal() envelope.MinimalParams {
	return envelope.MinimalParams{
		PointerDelta: envelope.PointerDelta{DX: 3, DY: 4},
		ZoomDelta:    0.2,
	}
}

// TestLogDispatchedContractFields verifies the dispatched record carries all
// contract fields under their wire names.
func TestLogDispatchedContractFields(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Unix(1700000001, 0)
	logger := observability.NewStructuredLogger(&buf, observability.WithLoggerClock(func() time.Time { return fixed }))

	require.NoError(t, logger.LogDispatched("unity", contractEnvelope(), contractMinimal()))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, float64(1700000001), record["timestamp"])
	assert.Equal(t, "unity", record["sink"])
	assert.Equal(t, "event", record["kind"])
	assert.Equal(t, "session-1", record["session_id"])
	assert.Equal(t, "unity", record["sdk_surface"])
	assert.Equal(t, map[string]any{"overlay": true}, record["capabilities"])
	assert.Equal(t, 1700000000.5, record["bridged_at"])

	minimal := record["minimal"].(map[string]any)
	assert.Equal(t, map[string]any{"dx": 3.0, "dy": 4.0}, minimal["POINTER_DELTA"])

	derived := record["derived"].(map[string]any)
	assert.Equal(t, 5.0, derived["pointer_magnitude"])

	_, hasStatus := record["status"]
	assert.False(t, hasStatus, "dispatched records carry no status field")
}

// TestLogRateLimitedOmitsDerived verifies the rate-limited record carries
// the status marker and no derived metrics.
func TestLogRateLimitedOmitsDerived(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewStructuredLogger(&buf)

	require.NoError(t, logger.LogRateLimited("unity", contractEnvelope(), contractMinimal()))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "rate_limited", record["status"])
	_, hasDerived := record["derived"]
	assert.False(t, hasDerived, "rate-limited records carry no derived metrics")
	assert.Contains(t, record, "minimal")
}

// TestParseRecordsRoundTrip verifies a written stream parses back with
// fields intact.
func TestParseRecordsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewStructuredLogger(&buf)

	require.NoError(t, logger.LogDispatched("unity", contractEnvelope(), contractMinimal()))
	require.NoError(t, logger.LogRateLimited("unreal", contractEnvelope(), contractMinimal()))

	records, err := observability.ParseRecords(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "unity", records[0].Sink)
	require.NotNil(t, records[0].Derived)
	assert.Equal(t, 5.0, records[0].Derived.PointerMagnitude)
	assert.Equal(t, 3.0, records[0].Minimal.PointerDelta.DX)

	assert.Equal(t, "unreal", records[1].Sink)
	assert.Nil(t, records[1].Derived)
	assert.Equal(t, "rate_limited", records[1].Status)
}

// TestBufferedLoggerRecords verifies the in-memory capture parses back and
// logging may continue after a read.
func TestBufferedLoggerRecords(t *testing.T) {
	logger := observability.NewBufferedLogger()

	require.NoError(t, logger.LogDispatched("unity", contractEnvelope(), contractMinimal()))
	require.NoError(t, logger.LogRateLimited("unreal", contractEnvelope(), contractMinimal()))

	records, err := logger.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rate_limited", records[1].Status)

	require.NoError(t, logger.LogDispatched("holo", contractEnvelope(), contractMinimal()))
	records, err = logger.Records()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

// TestParseRecordsMalformed verifies a bad line reports its position.
func TestParseRecordsMalformed(t *testing.T) {
	input := `{"sink":"ok","kind":"event"}` + "\nnot json\n"

	_, err := observability.ParseRecords(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
