package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/droneid/internal/decode"
	"github.com/skywatch/droneid/internal/droneid"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	s := NewSqliteStore(filepath.Join(t.TempDir(), "droneid.db"))
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func testRecord(serial string, ts time.Time, crcValid bool) *decode.Record {
	return &decode.Record{
		TelemetryRecord: &droneid.TelemetryRecord{
			PktLen:         droneid.FrameLength,
			SequenceNumber: 42,
			SerialNumber:   serial,
			Longitude:      8.5,
			Latitude:       50.0,
			Altitude:       99.97,
			Height:         30.48,
			VNorth:         -5,
			GPSTime:        1700000000000,
			DeviceType:     16,
			UUID:           "0123456789abcdef",
			CRCValid:       crcValid,
			CRCPacket:      0xBEEF,
			CRCCalculated:  0xBEEF,
		},
		Frequency: 2.4595e9,
		Timestamp: ts,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type snapshot struct {
		SampleRate float64 `json:"sample_rate"`
		Workers    int     `json:"workers"`
	}

	id, err := s.CreateSession(ctx, "replay", snapshot{SampleRate: 15.36e6, Workers: 2})
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(id))

	sess, err := s.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, "replay", sess.Receiver)
	require.NotNil(t, sess.Config)
	assert.JSONEq(t, `{"sample_rate":15360000,"workers":2}`, *sess.Config)
	assert.WithinDuration(t, time.Now(), sess.StartTime, time.Minute)
}

func TestSessionsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "replay", nil)
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, "hardware", "raw config")
	require.NoError(t, err)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
	assert.Nil(t, sessions[0].Config)
}

func TestStoreAndReadRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "replay", nil)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recID, err := s.StoreRecord(ctx, id, testRecord("DRONE-A", base, true))
	require.NoError(t, err)
	assert.Positive(t, recID)

	require.NoError(t, s.StoreRecords(ctx, id, []*decode.Record{
		testRecord("DRONE-A", base.Add(time.Second), false),
		testRecord("DRONE-B", base.Add(2*time.Second), true),
	}))

	r, err := s.ReadRecords(ctx, id)
	require.NoError(t, err)
	defer r.Close()

	records, err := CollectRecords(r)
	require.NoError(t, err)
	require.Len(t, records, 3)

	got := records[0]
	assert.Equal(t, id, got.SessionID)
	assert.Equal(t, "DRONE-A", got.SerialNumber)
	assert.Equal(t, uint16(42), got.SequenceNumber)
	assert.InDelta(t, 8.5, got.Longitude, 1e-9)
	assert.InDelta(t, 50.0, got.Latitude, 1e-9)
	assert.Equal(t, uint64(1700000000000), got.GPSTime)
	assert.Equal(t, int16(-5), got.VNorth)
	assert.True(t, got.CRCValid)
	assert.Equal(t, 2.4595e9, got.Frequency)
	assert.True(t, got.Record.Timestamp.Equal(base))
}

func TestReadRecordsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "replay", nil)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.StoreRecords(ctx, id, []*decode.Record{
		testRecord("DRONE-A", base, true),
		testRecord("DRONE-A", base.Add(time.Minute), false),
		testRecord("DRONE-B", base.Add(2*time.Minute), true),
	}))

	r, err := s.ReadRecords(ctx, id, WithValidCRCOnly())
	require.NoError(t, err)
	records, err := CollectRecords(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	r, err = s.ReadRecords(ctx, id, WithSerial("DRONE-B"))
	require.NoError(t, err)
	records, err = CollectRecords(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "DRONE-B", records[0].SerialNumber)

	r, err = s.ReadRecords(ctx, id, WithTimeRange(base.Add(30*time.Second), base.Add(90*time.Second)))
	require.NoError(t, err)
	records, err = CollectRecords(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].CRCValid)

	r, err = s.ReadRecords(ctx, id, WithSerial("DRONE-C"))
	require.NoError(t, err)
	_, err = CollectRecords(r)
	assert.ErrorIs(t, err, ErrNoData)
	require.NoError(t, r.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "droneid.db"))

	ctx := context.Background()
	_, err := s.CreateSession(ctx, "replay", nil)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
