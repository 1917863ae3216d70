package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Resample rate-converts samples from inRate to outRate (outRate below
// inRate) in the frequency domain: forward transform, spectrum
// truncation, inverse transform. The output length is
// round(n*outRate/inRate) and the result is deterministic for identical
// inputs.
func Resample(samples []complex64, inRate, outRate float64) []complex64 {
	n := len(samples)
	if n == 0 || inRate == outRate {
		out := make([]complex64, n)
		copy(out, samples)
		return out
	}

	m := int(math.Round(float64(n) * outRate / inRate))
	if m <= 0 {
		return nil
	}

	fwd := fourier.NewCmplxFFT(n)
	coeffs := fwd.Coefficients(nil, toComplex128(samples))

	// Keep the lowest |frequency| bins of the input spectrum.
	truncated := make([]complex128, m)
	keep := m
	if n < keep {
		keep = n
	}
	half := keep / 2
	copy(truncated[:half], coeffs[:half])
	for k := 1; k <= keep-half; k++ {
		truncated[m-k] = coeffs[n-k]
	}

	inv := fourier.NewCmplxFFT(m)
	seq := inv.Sequence(nil, truncated)

	// Sequence is unnormalized; dividing by n folds in both the inverse
	// transform scale and the amplitude-preserving m/n factor.
	out := make([]complex64, m)
	scale := 1 / float64(n)
	for i, v := range seq {
		out[i] = complex(float32(real(v)*scale), float32(imag(v)*scale))
	}
	return out
}
