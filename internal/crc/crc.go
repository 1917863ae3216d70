// Package crc implements the reflected table-driven CRC-16 used by the
// DroneID link layer.
package crc

import "fmt"

// CRC holds the parameters of a reflected (LSB-first) CRC-16.
type CRC struct {
	Name string
	Init uint16
	Poly uint16

	tbl Table
}

// New builds a CRC from a normal-form polynomial. The table is generated
// from the bit-reversed polynomial so Checksum consumes input LSB first.
func New(name string, init, poly uint16) (crc CRC) {
	crc.Name = name
	crc.Init = init
	crc.Poly = poly
	crc.tbl = NewTable(reverse16(poly))

	return
}

func (crc CRC) String() string {
	return fmt.Sprintf("{Name:%s Init:0x%04X Poly:0x%04X}", crc.Name, crc.Init, crc.Poly)
}

func (crc CRC) Checksum(data []byte) uint16 {
	return Checksum(crc.Init, data, crc.tbl)
}

type Table [256]uint16

// NewTable generates a reflected lookup table for the given reversed-form
// polynomial.
func NewTable(poly uint16) (table Table) {
	for tIdx := range table {
		crc := uint16(tIdx)
		for bIdx := 0; bIdx < 8; bIdx++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ poly
			} else {
				crc = crc >> 1
			}
		}
		table[tIdx] = crc
	}
	return table
}

func Checksum(init uint16, data []byte, table Table) (crc uint16) {
	crc = init
	for _, v := range data {
		crc = crc>>8 ^ table[byte(crc)^v]
	}
	return
}

func reverse16(v uint16) (r uint16) {
	for i := 0; i < 16; i++ {
		r = r<<1 | v&1
		v >>= 1
	}
	return
}
