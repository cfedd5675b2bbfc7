package raster

import "math/bits"

// CountDarkBits returns the number of set bits in buf. Used for the
// dark-area report; with photometric min-is-white a set bit is a dark
// pixel.
func CountDarkBits(buf []byte) uint64 {
	var n uint64
	for _, b := range buf {
		n += uint64(bits.OnesCount8(b))
	}
	return n
}
