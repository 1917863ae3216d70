package sdr

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"
)

// ReplayReceiver replays raw captures from a file of interleaved
// little-endian float32 I/Q pairs, the format external capture
// frontends dump. Retuning is recorded but does not change the sample
// stream.
type ReplayReceiver struct {
	f      *os.File
	r      *bufio.Reader
	rate   float64
	freq   float64
	closed bool

	logger *slog.Logger
}

// ReplayOption configures a ReplayReceiver.
type ReplayOption func(*ReplayReceiver)

// WithReplayLogger sets the logger for the receiver.
func WithReplayLogger(logger *slog.Logger) ReplayOption {
	return func(r *ReplayReceiver) {
		r.logger = logger.With(slog.String("receiver", "replay"))
	}
}

// NewReplayReceiver opens path for replay at the given nominal sample
// rate.
func NewReplayReceiver(path string, sampleRate float64, options ...ReplayOption) (*ReplayReceiver, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %f", sampleRate)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening replay file: %w", err)
	}

	r := &ReplayReceiver{
		f:      f,
		r:      bufio.NewReaderSize(f, 1<<20),
		rate:   sampleRate,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// SampleRate returns the nominal replay rate.
func (r *ReplayReceiver) SampleRate() float64 {
	return r.rate
}

func (r *ReplayReceiver) SetFrequency(hz float64) error {
	if r.closed {
		return ErrClosed
	}
	r.freq = hz
	r.logger.Debug("retuned", slog.Float64("frequency", hz))
	return nil
}

// ReceiveSamples reads the next n samples from the file. A partial
// final block is returned alongside ErrEndOfStream only when empty;
// otherwise the short capture is returned without error and the next
// call reports the end of the stream.
func (r *ReplayReceiver) ReceiveSamples(ctx context.Context, n int) (*Capture, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, 8*n)
	read, err := io.ReadFull(r.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("error reading replay file: %w", err)
	}

	samples := make([]complex64, read/8)
	for i := range samples {
		re := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i+4:]))
		samples[i] = complex(re, im)
	}
	if len(samples) == 0 {
		return nil, ErrEndOfStream
	}

	return &Capture{
		Samples:    samples,
		SampleRate: r.rate,
		CenterFreq: r.freq,
		Timestamp:  time.Now(),
	}, nil
}

func (r *ReplayReceiver) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}
