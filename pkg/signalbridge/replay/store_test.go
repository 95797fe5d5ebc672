package replay_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/replay"
)

func newTestArchive(t *testing.T) *replay.SQLiteArchive {
	t.Helper()
	archive, err := replay.NewSQLiteArchive(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

// TestArchiveRoundTrip verifies frames survive a save/load cycle with their
// envelope contents and receipt ordering intact.
func TestArchiveRoundTrip(t *testing.T) {
	archive := newTestArchive(t)

	frames := []replay.Frame{
		{Sink: "unity", Envelope: recordedEnvelope(envelope.KindEvent), ReceivedAt: 1000.5},
		{Sink: "unreal", Envelope: recordedEnvelope(envelope.KindHoloFrame), ReceivedAt: 1001.25},
	}
	require.NoError(t, archive.Save("session-a", frames))

	loaded, err := archive.Load("session-a")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "unity", loaded[0].Sink)
	assert.Equal(t, 1000.5, loaded[0].ReceivedAt)
	assert.Equal(t, envelope.KindEvent, loaded[0].Envelope.Kind)
	assert.Equal(t, "s1", loaded[0].Envelope.Context.SessionID)
	assert.Equal(t, envelope.KindHoloFrame, loaded[1].Envelope.Kind)
}

// TestArchiveLoadOrders verifies Load returns frames by receipt time even
// when saved out of order.
func TestArchiveLoadOrders(t *testing.T) {
	archive := newTestArchive(t)

	require.NoError(t, archive.Save("session-b", []replay.Frame{
		{Sink: "late", Envelope: recordedEnvelope(envelope.KindEvent), ReceivedAt: 2000},
		{Sink: "early", Envelope: recordedEnvelope(envelope.KindEvent), ReceivedAt: 1000},
	}))

	loaded, err := archive.Load("session-b")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "early", loaded[0].Sink)
	assert.Equal(t, "late", loaded[1].Sink)
}

// TestArchiveSessions verifies session listing and isolation.
func TestArchiveSessions(t *testing.T) {
	archive := newTestArchive(t)

	require.NoError(t, archive.Save("b", []replay.Frame{{Sink: "s", Envelope: recordedEnvelope(envelope.KindEvent)}}))
	require.NoError(t, archive.Save("a", []replay.Frame{{Sink: "s", Envelope: recordedEnvelope(envelope.KindEvent)}}))

	sessions, err := archive.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sessions)

	loaded, err := archive.Load("a")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

// TestArchiveClosed verifies operations after Close fail with
// ErrArchiveClosed.
func TestArchiveClosed(t *testing.T) {
	archive := newTestArchive(t)
	require.NoError(t, archive.Close())

	assert.ErrorIs(t, archive.Save("x", nil), replay.ErrArchiveClosed)
	_, err := archive.Load("x")
	assert.ErrorIs(t, err, replay.ErrArchiveClosed)
	_, err = archive.Sessions()
	assert.ErrorIs(t, err, replay.ErrArchiveClosed)
	assert.NoError(t, archive.Close(), "double close is a no-op")
}

// TestRecorderArchiveTo verifies the recorder persists its sorted frames.
func TestRecorderArchiveTo(t *testing.T) {
	archive := newTestArchive(t)

	clock := &sequenceClock{times: []time.Time{
		time.Unix(2000, 0),
		time.Unix(1000, 0),
	}}
	recorder := replay.NewRecorder(replay.WithClock(clock.Now))
	recorder.Record("late", recordedEnvelope(envelope.KindEvent))
	recorder.Record("early", recordedEnvelope(envelope.KindEvent))

	require.NoError(t, recorder.ArchiveTo(archive, "live"))

	loaded, err := archive.Load("live")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "early", loaded[0].Sink)
}
