package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PacketType selects the time-domain envelope the detector looks for.
type PacketType string

const (
	PacketDroneID PacketType = "droneid"
	PacketC2      PacketType = "c2"
	PacketBeacon  PacketType = "beacon"
	PacketPairing PacketType = "pairing"
	PacketVideo   PacketType = "video"
)

// durationWindow returns the allowed burst envelope duration in seconds.
func (p PacketType) durationWindow(legacy bool) (min, max float64) {
	switch p {
	case PacketC2:
		return 500e-6, 520e-6
	case PacketBeacon, PacketPairing:
		return 490e-6, 540e-6
	case PacketVideo:
		return 630e-6, 665e-6
	default: // droneid
		if legacy {
			return 565e-6, 600e-6
		}
		return 630e-6, 665e-6
	}
}

const (
	// stftSize is the short-time transform length. 64 points trade
	// frequency resolution for speed; timing detection only needs the
	// envelope.
	stftSize = 64

	// noiseFloorFactor marks time steps whose peak bin power exceeds the
	// profile mean by this factor.
	noiseFloorFactor = 1.15

	// guardInterval expands each detected envelope on both sides to
	// avoid clipping burst edges (three 15 us OFDM guard periods).
	guardInterval = 3 * 15e-6

	// maxCandidates bounds the candidates collected per detection call.
	// Three bursts are enough to confirm channel activity.
	maxCandidates = 3
)

// Detector finds packet-length bursts in a capture and annotates them
// with a validated coarse carrier offset.
type Detector struct {
	packetType PacketType
	legacy     bool

	fft        *fourier.CmplxFFT
	lastOffset float64
}

func NewDetector(packetType PacketType, legacy bool) *Detector {
	return &Detector{
		packetType: packetType,
		legacy:     legacy,
		fft:        fourier.NewCmplxFFT(stftSize),
	}
}

// LastOffset returns the most recent offset estimate, kept for
// diagnostics only.
func (d *Detector) LastOffset() float64 { return d.lastOffset }

// Detect scans the capture for bursts whose envelope duration matches the
// packet type. Candidates whose carrier offset fails validation are
// dropped unless the detector is in legacy mode, where the offset is
// forced to zero instead.
func (d *Detector) Detect(samples []complex64, sampleRate float64) []BurstCandidate {
	steps := len(samples) / stftSize
	if steps == 0 {
		return nil
	}

	profile := d.powerProfile(samples, steps)

	var noiseFloor float64
	for _, p := range profile {
		noiseFloor += p
	}
	noiseFloor /= float64(steps)

	above := make([]bool, steps)
	for i, p := range profile {
		above[i] = p > noiseFloorFactor*noiseFloor
	}

	stepDuration := stftSize / sampleRate
	minLen, maxLen := d.packetType.durationWindow(d.legacy)
	minSteps := int(minLen / stepDuration)
	maxSteps := int(maxLen / stepDuration)

	guard := int(guardInterval * sampleRate)

	var candidates []BurstCandidate
	for start := 0; start < steps && len(candidates) < maxCandidates; {
		if !above[start] {
			start++
			continue
		}

		end := start
		for end < steps && above[end] {
			end++
		}
		width := end - start

		if width < minSteps || width > maxSteps {
			start = end
			continue
		}

		lo := start*stftSize - guard
		hi := end*stftSize + guard
		if lo < 0 {
			lo = 0
		}
		if hi > len(samples) {
			hi = len(samples)
		}

		burst := samples[lo:hi]
		offset, found := EstimateOffset(burst, sampleRate, d.legacy)
		d.lastOffset = offset

		if !found {
			if !d.legacy {
				start = end
				continue
			}
			offset = 0 // legacy bandwidth bypass
		}

		candidates = append(candidates, BurstCandidate{
			Samples:  burst,
			Start:    lo,
			End:      hi,
			Duration: float64(width) * stepDuration,
			OffsetHz: offset,
			Valid:    found,
		})
		start = end
	}

	return candidates
}

// powerProfile computes per-step power as the maximum bin magnitude of a
// 64-point transform, no overlap.
func (d *Detector) powerProfile(samples []complex64, steps int) []float64 {
	profile := make([]float64, steps)
	window := make([]complex128, stftSize)

	for i := 0; i < steps; i++ {
		for j := range window {
			window[j] = complex128(samples[i*stftSize+j])
		}
		coeffs := d.fft.Coefficients(nil, window)

		var peak float64
		for _, c := range coeffs {
			if m := cmplx.Abs(c); m > peak {
				peak = m
			}
		}
		profile[i] = peak
	}
	return profile
}
