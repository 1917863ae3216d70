package droneid

// subBlockColumns is the column count of the transmit-side sub-block
// interleaver.
const subBlockColumns = 32

// Dematch reverses the sub-block interleaving of the systematic bit
// stream. The transmitter fills a matrix of 32 columns column by column,
// the trailing cells beyond len(bits) holding dummy positions, and reads
// it out row by row. Dematch recovers the natural order and drops the
// dummy cells, so the output is a fixed permutation of the input with the
// same length.
func Dematch(bits []byte) []byte {
	n := len(bits)
	if n == 0 {
		return nil
	}

	rows := (n + subBlockColumns - 1) / subBlockColumns

	out := make([]byte, 0, n)
	for r := 0; r < rows; r++ {
		for c := 0; c < subBlockColumns; c++ {
			k := c*rows + r
			if k < n {
				out = append(out, bits[k])
			}
		}
	}
	return out
}
