package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/pipeline"
)

func imuEventPayload(dx, dy float64) map[string]any {
	return map[string]any{
		"type":      "imu_frame",
		"timestamp": 10.0,
		"payload": map[string]any{
			"POINTER_DELTA": map[string]any{"dx": dx, "dy": dy},
			"ZOOM_DELTA":    0.0,
			"ROT_DELTA":     0.0,
			"INPUT_TRIGGER": false,
		},
	}
}

// TestPublishDeliversToAllSubscribers verifies fan-out to every subscriber
// and the injected event timestamp.
func TestPublishDeliversToAllSubscribers(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	service := pipeline.NewService(nil, pipeline.WithServiceClock(func() time.Time { return fixed }))

	first := service.Subscribe(1)
	second := service.Subscribe(1)

	event, err := service.Publish(context.Background(), envelope.KindEvent, imuEventPayload(1, 2))
	require.NoError(t, err)
	assert.Equal(t, float64(1700000000), event.Timestamp)

	assert.Equal(t, event, <-first)
	assert.Equal(t, event, <-second)
}

// TestPublishValidates verifies invalid payloads never reach subscribers.
func TestPublishValidates(t *testing.T) {
	service := pipeline.NewService(nil)
	sub := service.Subscribe(1)

	payload := imuEventPayload(1, 2)
	delete(payload["payload"].(map[string]any), "ZOOM_DELTA")

	_, err := service.Publish(context.Background(), envelope.KindEvent, payload)

	var verr *envelope.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, sub)
}

// TestPublishUnsupportedKind verifies unknown kinds are rejected.
func TestPublishUnsupportedKind(t *testing.T) {
	service := pipeline.NewService(nil)

	_, err := service.Publish(context.Background(), "mystery", imuEventPayload(0, 0))

	var unsupported *envelope.UnsupportedKindError
	assert.ErrorAs(t, err, &unsupported)
}

// TestPublishRespectsContext verifies a full subscriber buffer blocks until
// the context is cancelled.
func TestPublishRespectsContext(t *testing.T) {
	service := pipeline.NewService(nil)
	service.Subscribe(0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := service.Publish(ctx, envelope.KindEvent, imuEventPayload(0, 0))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestCloseEndsSubscriptions verifies Close closes subscriber channels and
// later Subscribe calls return closed channels.
func TestCloseEndsSubscriptions(t *testing.T) {
	service := pipeline.NewService(nil)
	sub := service.Subscribe(1)

	service.Close()

	_, open := <-sub
	assert.False(t, open)

	_, open = <-service.Subscribe(1)
	assert.False(t, open, "subscribing after close yields a closed channel")
}
