// Package dsp implements the time/frequency domain front half of the
// decode pipeline: burst detection, coarse carrier offset estimation,
// rate conversion and frequency shifting of complex baseband captures.
package dsp

import "math"

// BurstCandidate is a contiguous slice of a capture that matches the
// expected packet envelope. Samples include the guard interval on both
// sides and are consumed exactly once by the symbol extractor.
type BurstCandidate struct {
	Samples  []complex64
	Start    int     // first sample index in the capture
	End      int     // one past the last sample index
	Duration float64 // detected envelope width in seconds
	OffsetHz float64 // estimated coarse carrier offset
	Valid    bool    // offset passed the bandwidth check
}

// FrequencyShift mixes the samples by shiftHz, returning a new slice.
// Shifting by the negated estimated offset re-centers a burst at
// baseband.
func FrequencyShift(samples []complex64, shiftHz, sampleRate float64) []complex64 {
	if shiftHz == 0 {
		out := make([]complex64, len(samples))
		copy(out, samples)
		return out
	}

	out := make([]complex64, len(samples))
	step := 2 * math.Pi * shiftHz / sampleRate
	for i, s := range samples {
		phase := step * float64(i)
		sin, cos := math.Sincos(phase)
		out[i] = s * complex(float32(cos), float32(sin))
	}
	return out
}

func toComplex128(in []complex64) []complex128 {
	out := make([]complex128, len(in))
	for i, v := range in {
		out[i] = complex128(v)
	}
	return out
}

func toComplex64(in []complex128) []complex64 {
	out := make([]complex64, len(in))
	for i, v := range in {
		out[i] = complex(float32(real(v)), float32(imag(v)))
	}
	return out
}
