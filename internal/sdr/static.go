package sdr

import (
	"context"
	"time"
)

// StaticReceiver serves pre-built sample blocks in order, then reports
// the end of the stream. It backs pipeline tests and canned-data runs
// where no replay file exists.
type StaticReceiver struct {
	blocks [][]complex64
	rate   float64
	freq   float64
	next   int
	closed bool

	// Retunes records every SetFrequency call, oldest first.
	Retunes []float64
}

// NewStaticReceiver wraps the given blocks at the given sample rate.
// Blocks are handed out as-is; the requested length is ignored.
func NewStaticReceiver(sampleRate float64, blocks ...[]complex64) *StaticReceiver {
	return &StaticReceiver{blocks: blocks, rate: sampleRate}
}

func (s *StaticReceiver) SetFrequency(hz float64) error {
	if s.closed {
		return ErrClosed
	}
	s.freq = hz
	s.Retunes = append(s.Retunes, hz)
	return nil
}

func (s *StaticReceiver) ReceiveSamples(ctx context.Context, _ int) (*Capture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.blocks) {
		return nil, ErrEndOfStream
	}

	c := &Capture{
		Samples:    s.blocks[s.next],
		SampleRate: s.rate,
		CenterFreq: s.freq,
		Timestamp:  time.Now(),
	}
	s.next++
	return c, nil
}

func (s *StaticReceiver) Close() error {
	s.closed = true
	return nil
}
