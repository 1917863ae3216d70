package ofdm

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ZCSequence returns the length-601 Zadoff-Chu sequence for the given
// root, with the center element nulled so the DC bin stays empty.
func ZCSequence(root int) []complex128 {
	seq := make([]complex128, zcLength)
	for n := range seq {
		phase := -math.Pi * float64(root) * float64(n) * float64(n+1) / zcLength
		seq[n] = cmplx.Exp(complex(0, phase))
	}
	seq[zcLength/2] = 0
	return seq
}

// zcFrequencyDomain maps a ZC sequence onto the FFT grid, occupying bins
// -300..300 in sequence order.
func zcFrequencyDomain(root int) []complex128 {
	seq := ZCSequence(root)

	freq := make([]complex128, FFTSize)
	for i, v := range seq {
		bin := i - zcLength/2 // -300..300
		if bin < 0 {
			bin += FFTSize
		}
		freq[bin] = v
	}
	return freq
}

// zcTimeReference returns the unit-energy time-domain reference of a ZC
// symbol, used for burst timing correlation.
func zcTimeReference(root int) []complex128 {
	fft := fourier.NewCmplxFFT(FFTSize)
	ref := fft.Sequence(nil, zcFrequencyDomain(root))

	var energy float64
	for _, v := range ref {
		energy += real(v)*real(v) + imag(v)*imag(v)
	}
	scale := complex(1/math.Sqrt(energy), 0)
	for i := range ref {
		ref[i] *= scale
	}
	return ref
}
