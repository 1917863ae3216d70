// Package storage persists receiver sessions and decoded telemetry
// records in SQLite, and provides an iterator-based reader for
// playback and analysis.
package storage

import (
	"context"
	"time"

	"github.com/skywatch/droneid/internal/decode"
)

// Session describes one receiver run: when it started, which receiver
// produced it and the configuration snapshot it ran under.
type Session struct {
	ID        string // UUID
	StartTime time.Time
	Receiver  string
	Config    *string // JSON snapshot, nil when none was recorded
}

// StoredRecord is a decoded record together with its database identity.
type StoredRecord struct {
	ID        int64
	SessionID string

	decode.Record
}

// Store persists sessions and decoded records. Write operations are
// atomic; a single store is safe for concurrent use.
type Store interface {
	// CreateSession initializes a new receiver session and returns its
	// UUID. config may be a string, []byte or any JSON-serializable
	// value; nil stores no snapshot.
	CreateSession(ctx context.Context, receiver string, config any) (sessionID string, err error)

	// Session returns one session by UUID.
	Session(ctx context.Context, id string) (*Session, error)

	// Sessions returns every stored session, oldest first.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreRecord persists one decoded record, CRC failures included,
	// and returns its row ID.
	StoreRecord(ctx context.Context, sessionID string, rec *decode.Record) (int64, error)

	// StoreRecords persists a batch of records in one transaction.
	StoreRecords(ctx context.Context, sessionID string, recs []*decode.Record) error

	// ReadRecords returns a reader over the session's records in
	// timestamp order, honoring the given filters. The reader must be
	// closed after use.
	ReadRecords(ctx context.Context, sessionID string, opts ...ReaderOption) (*RecordReader, error)

	// Close releases all database connections. Safe to call more than
	// once.
	Close() error
}
