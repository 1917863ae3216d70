package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skywatch/droneid/internal/droneid"
)

// ErrNoData indicates that the session holds no records matching the
// reader's filters.
var ErrNoData = errors.New("storage: no data available")

// ReaderOption configures a RecordReader with filtering criteria.
type ReaderOption func(*RecordReader)

// WithStartTime excludes records before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *RecordReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes records after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *RecordReader) {
		r.endTime = &t
	}
}

// WithTimeRange applies both WithStartTime and WithEndTime.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *RecordReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// WithValidCRCOnly excludes records whose frames failed the CRC check.
func WithValidCRCOnly() ReaderOption {
	return func(r *RecordReader) {
		r.validCRCOnly = true
	}
}

// WithSerial restricts the reader to one transmitter's records.
func WithSerial(serial string) ReaderOption {
	return func(r *RecordReader) {
		r.serial = &serial
	}
}

// RecordReader iterates a session's decoded records in timestamp order.
// Each reader must be used from a single goroutine and closed after use.
type RecordReader struct {
	sessionID string

	startTime    *time.Time
	endTime      *time.Time
	validCRCOnly bool
	serial       *string

	rows    *sql.Rows
	current *StoredRecord
	err     error
}

func newRecordReader(ctx context.Context, db *sql.DB, sessionID string, opts ...ReaderOption) (*RecordReader, error) {
	if sessionID == "" {
		return nil, errors.New("session ID required")
	}

	r := &RecordReader{sessionID: sessionID}
	for _, opt := range opts {
		opt(r)
	}

	query, args := r.buildQuery()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	r.rows = rows
	return r, nil
}

func (r *RecordReader) buildQuery() (string, []any) {
	var sb strings.Builder
	sb.WriteString(selectRecordsSQL)

	args := []any{r.sessionID}
	if r.startTime != nil {
		sb.WriteString(" AND timestamp >= ?")
		args = append(args, r.startTime.UTC())
	}
	if r.endTime != nil {
		sb.WriteString(" AND timestamp <= ?")
		args = append(args, r.endTime.UTC())
	}
	if r.validCRCOnly {
		sb.WriteString(" AND crc_valid = 1")
	}
	if r.serial != nil {
		sb.WriteString(" AND serial_number = ?")
		args = append(args, *r.serial)
	}
	sb.WriteString(" ORDER BY timestamp, id")

	return sb.String(), args
}

// Next advances the iterator. It returns false at the end of the result
// set or on error; check Error to tell the two apart.
func (r *RecordReader) Next() bool {
	if r.err != nil || !r.rows.Next() {
		if r.err == nil {
			r.err = r.rows.Err()
		}
		return false
	}

	var rec StoredRecord
	var tr droneid.TelemetryRecord
	var gpsTime int64

	if err := r.rows.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Record.Timestamp,
		&rec.Record.Frequency,
		&tr.SerialNumber,
		&tr.SequenceNumber,
		&tr.StateInfo,
		&tr.Longitude,
		&tr.Latitude,
		&tr.Altitude,
		&tr.Height,
		&tr.VNorth,
		&tr.VEast,
		&tr.VUp,
		&tr.D1Angle,
		&gpsTime,
		&tr.AppLat,
		&tr.AppLon,
		&tr.LatitudeHome,
		&tr.LongitudeHome,
		&tr.DeviceType,
		&tr.UUID,
		&tr.CRCValid,
		&tr.CRCPacket,
		&tr.CRCCalculated,
	); err != nil {
		r.err = fmt.Errorf("scanning record: %w", err)
		return false
	}

	tr.GPSTime = uint64(gpsTime)
	tr.PktLen = droneid.FrameLength
	rec.Record.TelemetryRecord = &tr

	r.current = &rec
	return true
}

// Current returns the record at the iterator position. Undefined after
// Next returned false.
func (r *RecordReader) Current() *StoredRecord {
	return r.current
}

// Error returns the first error encountered during iteration.
func (r *RecordReader) Error() error {
	return r.err
}

func (r *RecordReader) Close() error {
	return r.rows.Close()
}

// CollectRecords drains a reader into a slice, returning ErrNoData on an
// empty result set.
func CollectRecords(r *RecordReader) ([]*StoredRecord, error) {
	var out []*StoredRecord
	for r.Next() {
		out = append(out, r.Current())
	}
	if err := r.Error(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}
