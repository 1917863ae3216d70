package decode

import (
	"errors"
	"log/slog"

	"github.com/skywatch/droneid/internal/droneid"
	"github.com/skywatch/droneid/internal/ofdm"
)

// Stats counts pipeline outcomes. Workers report them per capture in
// their results; the orchestrator merges them into session totals, so
// no field needs atomic access.
type Stats struct {
	Captures  int
	Bursts    int
	Decoded   int
	CRCValid  int
	CRCErrors int

	// Failure classification, one bucket per decode stage.
	BadOffsets int
	NoSync     int
	NoPhase    int
	BadFrames  int
}

// classify routes one burst decode failure to its bucket.
func (s *Stats) classify(err error) {
	switch {
	case errors.Is(err, ErrOffsetInvalid):
		s.BadOffsets++
	case errors.Is(err, ofdm.ErrNoSync), errors.Is(err, ofdm.ErrTruncated):
		s.NoSync++
	case errors.Is(err, droneid.ErrNoPhase):
		s.NoPhase++
	default:
		s.BadFrames++
	}
}

// Merge adds the other run's counters into s.
func (s *Stats) Merge(o Stats) {
	s.Captures += o.Captures
	s.Bursts += o.Bursts
	s.Decoded += o.Decoded
	s.CRCValid += o.CRCValid
	s.CRCErrors += o.CRCErrors
	s.BadOffsets += o.BadOffsets
	s.NoSync += o.NoSync
	s.NoPhase += o.NoPhase
	s.BadFrames += o.BadFrames
}

// SuccessRate returns the share of detected bursts that decoded with a
// valid CRC, in percent.
func (s Stats) SuccessRate() float64 {
	if s.Bursts == 0 {
		return 0
	}
	return float64(s.CRCValid) / float64(s.Bursts) * 100
}

// LogAttrs returns the counters as structured logging attributes.
func (s Stats) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("captures", s.Captures),
		slog.Int("bursts", s.Bursts),
		slog.Int("decoded", s.Decoded),
		slog.Int("crcValid", s.CRCValid),
		slog.Int("crcErrors", s.CRCErrors),
		slog.Int("noSync", s.NoSync),
		slog.Int("noPhase", s.NoPhase),
		slog.Int("badFrames", s.BadFrames),
		slog.Int("badOffsets", s.BadOffsets),
	}
}
