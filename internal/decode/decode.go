// Package decode runs the per-capture demodulation pipeline: burst
// detection, carrier correction, resampling, symbol extraction and
// frame decoding, with per-capture statistics.
package decode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/skywatch/droneid/internal/droneid"
	"github.com/skywatch/droneid/internal/dsp"
	"github.com/skywatch/droneid/internal/ofdm"
	"github.com/skywatch/droneid/internal/sdr"
)

var (
	// ErrNoBurst is returned when a chunk carries no detectable burst.
	ErrNoBurst = errors.New("decode: no burst detected")

	// ErrOffsetInvalid is returned for bursts whose carrier offset could
	// not be validated.
	ErrOffsetInvalid = errors.New("decode: carrier offset estimation failed")
)

// ChunkDuration is the detection window the pipeline slices captures
// into. Bursts last well under a millisecond, so 250 ms always holds a
// complete one.
const ChunkDuration = 250 * time.Millisecond

// Record is one decoded frame with its reception context.
type Record struct {
	*droneid.TelemetryRecord

	Frequency float64 // Hz
	Timestamp time.Time
}

// Result summarizes one processed capture.
type Result struct {
	Frequency float64
	Timestamp time.Time

	// Detected reports whether at least one frame parsed, CRC aside.
	// The capture loop feeds this into the frequency scanner.
	Detected bool

	Records []*Record
	Stats   Stats
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.With(slog.String("component", "decode"))
	}
}

// Pipeline decodes captures. Each worker goroutine owns its own
// instance; a pipeline is not safe for concurrent use.
type Pipeline struct {
	legacy bool

	detector  *dsp.Detector
	extractor *ofdm.Extractor
	logger    *slog.Logger
}

func NewPipeline(packetType dsp.PacketType, legacy bool, options ...Option) *Pipeline {
	p := &Pipeline{
		legacy:    legacy,
		detector:  dsp.NewDetector(packetType, legacy),
		extractor: ofdm.NewExtractor(legacy),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Process runs the full pipeline over one capture and returns every
// decoded record plus the statistics of the run. It never fails: decode
// errors are classified into the statistics.
func (p *Pipeline) Process(c *sdr.Capture) *Result {
	res := &Result{
		Frequency: c.CenterFreq,
		Timestamp: c.Timestamp,
	}
	res.Stats.Captures = 1

	chunkLen := int(ChunkDuration.Seconds() * c.SampleRate)
	if chunkLen <= 0 {
		chunkLen = len(c.Samples)
	}

	for start := 0; start < len(c.Samples); start += chunkLen {
		end := start + chunkLen
		if end > len(c.Samples) {
			end = len(c.Samples)
		}

		records, stats, err := p.DecodeChunk(c.Samples[start:end], c.SampleRate)
		if errors.Is(err, ErrNoBurst) {
			continue
		}
		res.Stats.Merge(stats)

		for _, rec := range records {
			rec.Frequency = c.CenterFreq
			rec.Timestamp = c.Timestamp
		}
		if len(records) > 0 {
			res.Detected = true
		}
		res.Records = append(res.Records, records...)
	}
	return res
}

// DecodeChunk detects and decodes every burst inside one detection
// window. Quiet windows return ErrNoBurst; decode failures are
// classified into the returned statistics instead of failing the call.
func (p *Pipeline) DecodeChunk(chunk []complex64, sampleRate float64) ([]*Record, Stats, error) {
	var stats Stats

	candidates := p.detector.Detect(chunk, sampleRate)
	if len(candidates) == 0 {
		return nil, stats, ErrNoBurst
	}
	stats.Bursts = len(candidates)

	var records []*Record
	for _, cand := range candidates {
		rec, err := p.DecodeBurst(cand, sampleRate)
		if err != nil {
			stats.classify(err)
			p.logger.Debug("burst decode failed", slog.String("error", err.Error()))
			continue
		}

		stats.Decoded++
		if rec.CRCValid {
			stats.CRCValid++
		} else {
			stats.CRCErrors++
		}
		records = append(records, rec)
	}
	return records, stats, nil
}

// DecodeBurst demodulates one detected burst into a telemetry record.
// Exposed separately so raw burst dumps can be replayed without the
// detection stage.
func (p *Pipeline) DecodeBurst(cand dsp.BurstCandidate, sampleRate float64) (*Record, error) {
	if !cand.Valid && !p.legacy {
		return nil, fmt.Errorf("%w: %f Hz", ErrOffsetInvalid, cand.OffsetHz)
	}

	samples := cand.Samples
	if cand.OffsetHz != 0 {
		samples = dsp.FrequencyShift(samples, -cand.OffsetHz, sampleRate)
	}
	if sampleRate != ofdm.SampleRate {
		samples = dsp.Resample(samples, sampleRate, ofdm.SampleRate)
	}

	symbols, err := p.extractor.Extract(samples, true)
	if err != nil {
		return nil, err
	}

	frame, phase, err := droneid.NewDecoder(symbols).Decode()
	if err != nil {
		return nil, err
	}

	rec, err := droneid.ParseFrame(frame)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("frame decoded",
		slog.Int("phase", phase),
		slog.Bool("crcValid", rec.CRCValid),
		slog.String("serial", rec.SerialNumber))

	return &Record{TelemetryRecord: rec}, nil
}
