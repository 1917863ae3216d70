package droneid

// Scrambler constants. The sequence generator and its warm-up length follow
// the LTE pseudo-random sequence construction the protocol reuses; the seed
// is fixed for every DroneID transmitter.
const (
	GoldNc        = 1600
	ScramblerSeed = 0x12345678
)

// GoldSequence returns length bits of the Gold sequence defined by two
// 31-bit LFSRs (x^31+x^3+1 and x^31+x^3+x^2+x+1). The first register is
// seeded with 1, the second with the low 31 bits of seed, and nc outputs
// are discarded before the sequence starts. Output values are 0 or 1.
func GoldSequence(nc, length int, seed uint32) []byte {
	if length <= 0 {
		return nil
	}

	n := nc + length
	x1 := make([]byte, n+31)
	x2 := make([]byte, n+31)

	x1[0] = 1
	for i := 0; i < 31; i++ {
		x2[i] = byte(seed >> i & 1)
	}

	for i := 0; i < n; i++ {
		x1[i+31] = x1[i+3] ^ x1[i]
		x2[i+31] = x2[i+3] ^ x2[i+2] ^ x2[i+1] ^ x2[i]
	}

	seq := make([]byte, length)
	for i := range seq {
		seq[i] = x1[nc+i] ^ x2[nc+i]
	}
	return seq
}

// Descramble XORs bits in place with the protocol Gold sequence and
// returns the slice for chaining.
func Descramble(bits []byte) []byte {
	seq := GoldSequence(GoldNc, len(bits), ScramblerSeed)
	for i := range bits {
		bits[i] ^= seq[i]
	}
	return bits
}
