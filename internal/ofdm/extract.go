package ofdm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrNoSync    = errors.New("ofdm: no synchronization sequence found")
	ErrTruncated = errors.New("ofdm: burst too short for the symbol grid")
)

// syncThreshold is the minimum normalized correlation peak accepted as
// frame timing.
const syncThreshold = 0.5

// Extractor demodulates bursts into SymbolFrames. One extractor is
// reusable across bursts but not safe for concurrent use.
type Extractor struct {
	legacy  bool
	symbols int

	fft   *fourier.CmplxFFT
	zcRef []complex128 // time-domain reference of the first ZC symbol
	zcEq  []complex128 // frequency-domain values for equalization
}

func NewExtractor(legacy bool) *Extractor {
	symbols := SymbolCount
	if legacy {
		symbols = LegacySymbolCount
	}
	return &Extractor{
		legacy:  legacy,
		symbols: symbols,
		fft:     fourier.NewCmplxFFT(FFTSize),
		zcRef:   zcTimeReference(zcRootFirst),
		zcEq:    zcFrequencyDomain(zcRootFirst),
	}
}

// Extract locates the frame timing inside a resampled burst and returns
// the constellation points of every OFDM symbol, equalized against the
// first reference symbol. With skipZC the two reference symbol groups are
// excluded from the result.
func (e *Extractor) Extract(burst []complex64, skipZC bool) (SymbolFrame, error) {
	frameLen := BurstLength(e.symbols)
	if len(burst) < frameLen {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTruncated, len(burst), frameLen)
	}

	x := make([]complex128, len(burst))
	for i, v := range burst {
		x[i] = complex128(v)
	}

	zcFirst, _ := zcSymbolIndices(e.legacy)
	zcOffset := symbolStart(zcFirst)

	peak, quality := e.correlate(x)
	if quality < syncThreshold {
		return nil, fmt.Errorf("%w: correlation %.2f", ErrNoSync, quality)
	}

	frameStart := peak - zcOffset
	if frameStart < 0 || frameStart+frameLen > len(x) {
		return nil, fmt.Errorf("%w: sync at %d", ErrTruncated, peak)
	}

	// The coarse correction upstream leaves a residual of up to a few
	// kHz, enough to rotate symbols far from the reference out of their
	// quadrant. Measure it from cyclic prefix correlation and derotate.
	if cfo := e.residualCFO(x, frameStart); cfo != 0 {
		for n := frameStart; n < frameStart+frameLen; n++ {
			x[n] *= cmplx.Exp(complex(0, -2*math.Pi*cfo*float64(n)/SampleRate))
		}
	}

	// Demodulate every symbol, then derive the channel estimate from the
	// first reference symbol.
	raw := make(SymbolFrame, e.symbols)
	for s := 0; s < e.symbols; s++ {
		start := frameStart + symbolStart(s)
		raw[s] = e.demodulate(x[start : start+FFTSize])
	}

	eq := e.channelEstimate(raw[zcFirst])

	_, zcSecond := zcSymbolIndices(e.legacy)
	frame := make(SymbolFrame, 0, e.symbols)
	for s := 0; s < e.symbols; s++ {
		if skipZC && (s == zcFirst || s == zcSecond) {
			continue
		}
		group := make([]complex128, DataCarriers)
		for c := 0; c < DataCarriers; c++ {
			group[c] = raw[s][c] * eq[c]
		}
		frame = append(frame, group)
	}
	return frame, nil
}

// correlate slides the ZC reference over the burst and returns the
// position and normalized magnitude of the best match.
func (e *Extractor) correlate(x []complex128) (int, float64) {
	best, bestIdx := 0.0, 0

	// Running window energy for normalization.
	var energy float64
	for i := 0; i < FFTSize && i < len(x); i++ {
		v := x[i]
		energy += real(v)*real(v) + imag(v)*imag(v)
	}

	for t := 0; t+FFTSize <= len(x); t++ {
		var dot complex128
		for i, r := range e.zcRef {
			dot += x[t+i] * cmplx.Conj(r)
		}

		if energy > 0 {
			if m := cmplx.Abs(dot) / math.Sqrt(energy); m > best {
				best, bestIdx = m, t
			}
		}

		if t+FFTSize < len(x) {
			out, in := x[t], x[t+FFTSize]
			energy -= real(out)*real(out) + imag(out)*imag(out)
			energy += real(in)*real(in) + imag(in)*imag(in)
		}
	}
	return bestIdx, best
}

// residualCFO estimates the leftover carrier offset in Hz from cyclic
// prefix correlation across all symbols. Unambiguous up to half the
// carrier spacing.
func (e *Extractor) residualCFO(x []complex128, frameStart int) float64 {
	var acc complex128
	for s := 0; s < e.symbols; s++ {
		start := frameStart + symbolStart(s)
		for i := start - CyclicPrefix(s); i < start; i++ {
			acc += x[i+FFTSize] * cmplx.Conj(x[i])
		}
	}
	if acc == 0 {
		return 0
	}
	return cmplx.Phase(acc) / (2 * math.Pi) * SampleRate / FFTSize
}

// demodulate transforms one FFT window and de-maps the data carriers,
// lowest frequency first.
func (e *Extractor) demodulate(window []complex128) []complex128 {
	coeffs := e.fft.Coefficients(nil, window)

	out := make([]complex128, DataCarriers)
	for c := range out {
		out[c] = coeffs[CarrierBin(c)]
	}
	return out
}

// channelEstimate returns per-carrier equalizer taps from the received
// first ZC symbol.
func (e *Extractor) channelEstimate(rxZC []complex128) []complex128 {
	eq := make([]complex128, DataCarriers)
	for c := range eq {
		ref := e.zcEq[CarrierBin(c)]
		rx := rxZC[c]
		if ref == 0 || rx == 0 {
			eq[c] = 1
			continue
		}
		// tap = ref / rx so that rx*tap recovers the transmitted point.
		eq[c] = ref / rx
	}
	return eq
}

// symbolStart returns the offset of symbol s's FFT window from the frame
// start.
func symbolStart(s int) int {
	off := 0
	for i := 0; i < s; i++ {
		off += CyclicPrefix(i) + FFTSize
	}
	return off + CyclicPrefix(s)
}
