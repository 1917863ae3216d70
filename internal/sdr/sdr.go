// Package sdr models sample capture sources for the DroneID receive
// pipeline. A Receiver hands out fixed-length captures of complex
// baseband samples; implementations cover file replay and in-memory
// sources, with hardware access left to external frontends feeding
// replay files.
package sdr

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEndOfStream is returned once a finite sample source is
	// exhausted.
	ErrEndOfStream = errors.New("sdr: end of sample stream")

	// ErrClosed is returned from operations on a closed receiver.
	ErrClosed = errors.New("sdr: receiver closed")
)

// Capture is one contiguous block of baseband samples, tagged with the
// tuning state it was taken under.
type Capture struct {
	Samples    []complex64
	SampleRate float64 // Hz
	CenterFreq float64 // Hz
	Timestamp  time.Time
}

// Duration returns the capture length in wall time.
func (c *Capture) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / c.SampleRate * float64(time.Second))
}

// Receiver is a tunable sample source. Implementations are owned by a
// single goroutine; none of them are safe for concurrent use.
type Receiver interface {
	// SetFrequency retunes the receiver. Takes effect on the next
	// ReceiveSamples call.
	SetFrequency(hz float64) error

	// ReceiveSamples blocks until n samples are available and returns
	// them as a capture stamped with the current tuning state.
	ReceiveSamples(ctx context.Context, n int) (*Capture, error)

	// Close releases the underlying source.
	Close() error
}
