// Package ofdm demodulates a frequency-corrected, resampled DroneID
// burst into QPSK constellation points. Timing comes from Zadoff-Chu
// reference sequences embedded in the burst, channel equalization from
// the first reference symbol.
package ofdm

// Grid constants of the DroneID OFDM signal at the canonical processing
// rate.
const (
	// SampleRate is the canonical rate the symbol grid is defined at.
	SampleRate = 15.36e6

	// FFTSize is the transform length per OFDM symbol.
	FFTSize = 1024

	// CarrierSpacing in Hz.
	CarrierSpacing = 15e3

	// DataCarriers is the number of occupied subcarriers, DC excluded.
	DataCarriers = 600

	longCyclicPrefix  = 80
	shortCyclicPrefix = 72

	// SymbolCount is the number of OFDM symbols per burst.
	SymbolCount = 9
	// LegacySymbolCount applies to first-generation transmitters, which
	// omit the leading symbol.
	LegacySymbolCount = 8
)

// Zadoff-Chu roots of the two synchronization symbols.
const (
	zcRootFirst  = 600
	zcRootSecond = 147
	zcLength     = 601
)

// zcSymbolIndices returns the positions of the two reference symbols.
func zcSymbolIndices(legacy bool) (int, int) {
	if legacy {
		return 2, 4
	}
	return 3, 5
}

// CyclicPrefix returns the cyclic prefix length of the given symbol
// index: the leading symbol carries the long prefix.
func CyclicPrefix(symbol int) int {
	if symbol == 0 {
		return longCyclicPrefix
	}
	return shortCyclicPrefix
}

// BurstLength returns the burst length in samples for the given symbol
// count.
func BurstLength(symbols int) int {
	n := 0
	for s := 0; s < symbols; s++ {
		n += CyclicPrefix(s) + FFTSize
	}
	return n
}

// CarrierBin maps a data carrier index (0..599, lowest frequency first)
// to its FFT bin. The lower 300 carriers sit in the negative-frequency
// half, the upper 300 just above DC; DC itself is unused.
func CarrierBin(carrier int) int {
	if carrier < DataCarriers/2 {
		return FFTSize - DataCarriers/2 + carrier
	}
	return carrier - DataCarriers/2 + 1
}

// SymbolFrame is the ordered QPSK constellation points of one burst: one
// group of DataCarriers points per payload OFDM symbol.
type SymbolFrame [][]complex128
