package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// occupiedBandwidth is the nominal occupancy of a standard DroneID
	// burst: 600 subcarriers at 15 kHz spacing.
	occupiedBandwidth = 9e6

	// bandwidthTolerance is the accepted relative deviation from the
	// nominal occupancy before a candidate is rejected.
	bandwidthTolerance = 1.0 / 3.0

	// offsetFFTSize bounds the transform used for the power spectrum.
	offsetFFTSize = 4096

	// edgeThreshold defines the occupied-band edges relative to the
	// spectral peak after smoothing.
	edgeThreshold = 0.25

	// smoothWidth is the moving-average window applied to the magnitude
	// spectrum before edge search.
	smoothWidth = 8
)

// EstimateOffset measures the coarse carrier offset of one burst by
// locating its occupied-bandwidth window in the spectrum. found reports
// whether the measured occupancy matches the expected channel width;
// skipBWCheck bypasses that requirement and always reports true with the
// best-effort offset (0.0 when none can be computed).
func EstimateOffset(samples []complex64, sampleRate float64, skipBWCheck bool) (offset float64, found bool) {
	n := len(samples)
	if n == 0 {
		return 0, skipBWCheck
	}
	if n > offsetFFTSize {
		// Center cut: burst edges carry ramp energy.
		lo := (n - offsetFFTSize) / 2
		samples = samples[lo : lo+offsetFFTSize]
		n = offsetFFTSize
	}

	fft := fourier.NewCmplxFFT(n)
	coeffs := fft.Coefficients(nil, toComplex128(samples))

	// Shifted magnitude spectrum: index 0 = -rate/2.
	mags := make([]float64, n)
	for i, c := range coeffs {
		mags[(i+n/2)%n] = cmplx.Abs(c)
	}
	mags = smooth(mags, smoothWidth)

	peakIdx, peak := 0, 0.0
	for i, m := range mags {
		if m > peak {
			peakIdx, peak = i, m
		}
	}
	if peak == 0 {
		return 0, skipBWCheck
	}

	// Band edges: first and last bins above the threshold.
	threshold := edgeThreshold * peak
	lo, hi := peakIdx, peakIdx
	for i, m := range mags {
		if m > threshold {
			lo = i
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if mags[i] > threshold {
			hi = i
			break
		}
	}

	binWidth := sampleRate / float64(n)
	bandwidth := float64(hi-lo+1) * binWidth
	offset = (float64(lo+hi)/2 - float64(n/2)) * binWidth

	if skipBWCheck {
		return offset, true
	}
	if bandwidth < occupiedBandwidth*(1-bandwidthTolerance) ||
		bandwidth > occupiedBandwidth*(1+bandwidthTolerance) {
		return offset, false
	}
	return offset, true
}

func smooth(in []float64, width int) []float64 {
	if width <= 1 || len(in) < width {
		return in
	}
	out := make([]float64, len(in))
	var sum float64
	for i := 0; i < len(in); i++ {
		sum += in[i]
		if i >= width {
			sum -= in[i-width]
		}
		if i >= width-1 {
			out[i-width/2] = sum / float64(width)
		}
	}
	return out
}
