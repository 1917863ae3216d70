package droneid

import (
	"errors"
	"fmt"
)

// SystematicLength is the number of systematic bits carried by one
// DroneID transport block: a 176-byte DUML block plus four tail bits.
const SystematicLength = 1412

// PhaseHypotheses is the number of residual quarter-turn rotations left
// unresolved by the coarse CFO correction.
const PhaseHypotheses = 4

var (
	ErrNoPhase     = errors.New("droneid: no phase hypothesis produced a valid frame")
	ErrShortStream = errors.New("droneid: symbol stream shorter than one transport block")
)

// qpskToBits maps a constellation quadrant to a bit pair under each phase
// hypothesis. Quadrant order: (+,+), (+,-), (-,-), (-,+). Hypothesis k
// de-rotates the constellation by k quarter turns before applying the
// Gray base map.
var qpskToBits = [PhaseHypotheses][4]byte{
	{0b00, 0b01, 0b11, 0b10},
	{0b01, 0b11, 0b10, 0b00},
	{0b11, 0b10, 0b00, 0b01},
	{0b10, 0b00, 0b01, 0b11},
}

// SymbolBits maps one constellation point to its bit pair under the given
// phase hypothesis.
func SymbolBits(sym complex128, phase int) (byte, error) {
	if phase < 0 || phase >= PhaseHypotheses {
		return 0, fmt.Errorf("droneid: phase hypothesis %d out of range", phase)
	}
	return qpskToBits[phase][quadrant(sym)], nil
}

func quadrant(sym complex128) int {
	switch {
	case real(sym) >= 0 && imag(sym) >= 0:
		return 0
	case real(sym) >= 0:
		return 1
	case imag(sym) < 0:
		return 2
	default:
		return 3
	}
}

// Decoder turns the QPSK constellation points of one burst into a frame,
// brute-forcing the residual phase ambiguity.
type Decoder struct {
	symbols [][]complex128
}

// NewDecoder wraps the payload symbol groups of one burst. The groups
// must already exclude the synchronization reference symbols.
func NewDecoder(symbols [][]complex128) *Decoder {
	return &Decoder{symbols: symbols}
}

// Bits demodulates every constellation point under one phase hypothesis,
// concatenating the bit pairs in symbol order.
func (d *Decoder) Bits(phase int) ([]byte, error) {
	var n int
	for _, group := range d.symbols {
		n += len(group)
	}

	bits := make([]byte, 0, 2*n)
	for _, group := range d.symbols {
		for _, sym := range group {
			pair, err := SymbolBits(sym, phase)
			if err != nil {
				return nil, err
			}
			bits = append(bits, pair>>1, pair&1)
		}
	}
	return bits, nil
}

// Frame decodes the symbols under a single phase hypothesis: systematic
// stream extraction, rate de-matching, descrambling and MSB-first byte
// packing.
func (d *Decoder) Frame(phase int) (RawFrame, error) {
	bits, err := d.Bits(phase)
	if err != nil {
		return nil, err
	}
	if len(bits) < SystematicLength {
		return nil, fmt.Errorf("%w: %d bits", ErrShortStream, len(bits))
	}

	plain := Descramble(Dematch(bits[:SystematicLength]))

	frame, err := NewRawFrame(packBits(plain))
	if err != nil {
		return nil, err
	}
	if frame[0] != FrameLength {
		return nil, fmt.Errorf("droneid: bad length marker 0x%02x", frame[0])
	}
	return frame, nil
}

// Decode tries the four phase hypotheses in order and returns the first
// one that yields a structurally valid frame, together with the winning
// hypothesis. CRC validity is deliberately not consulted here: the caller
// checks and reports it separately, and a CRC failure does not retry the
// remaining phases.
func (d *Decoder) Decode() (RawFrame, int, error) {
	var lastErr error
	for phase := 0; phase < PhaseHypotheses; phase++ {
		frame, err := d.Frame(phase)
		if err != nil {
			lastErr = err
			continue
		}
		return frame, phase, nil
	}
	return nil, 0, fmt.Errorf("%w: %w", ErrNoPhase, lastErr)
}

// packBits packs a 0/1 bit stream MSB first. A trailing partial byte is
// dropped.
func packBits(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | bits[8*i+j]&1
		}
		out[i] = b
	}
	return out
}
