package raster

import "github.com/cocosip/go-gerber-raster/poly"

// PaintRun draws the horizontal pixel run [x1, x2] inclusive into one
// bitmap row. Pixels are packed MSB-left, so pixel x lives in bit
// 7-(x&7) of byte x>>3. Dark sets bits, Clear clears them, XOR inverts
// them. Runs outside the row are clipped.
func PaintRun(row []byte, x1, x2 int, polarity poly.Polarity) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if x2 < 0 || x1 >= len(row)*8 {
		return
	}
	if x1 < 0 {
		x1 = 0
	}
	if x2 >= len(row)*8 {
		x2 = len(row)*8 - 1
	}

	b1 := uint(x1 & 7)
	b2 := uint(x2 & 7)
	i1 := x1 >> 3
	i2 := x2 >> 3

	first := byte(0xFF) >> b1        // pixels b1..7 of the leading byte
	last := byte(0xFF) << (7 - b2)   // pixels 0..b2 of the trailing byte

	if i1 == i2 {
		single := first & last
		switch polarity {
		case poly.Dark:
			row[i1] |= single
		case poly.Clear:
			row[i1] &^= single
		case poly.XOR:
			row[i1] ^= single
		}
		return
	}

	switch polarity {
	case poly.Dark:
		row[i1] |= first
		row[i2] |= last
		for i := i1 + 1; i < i2; i++ {
			row[i] = 0xFF
		}
	case poly.Clear:
		row[i1] &^= first
		row[i2] &^= last
		for i := i1 + 1; i < i2; i++ {
			row[i] = 0x00
		}
	case poly.XOR:
		row[i1] ^= first
		row[i2] ^= last
		for i := i1 + 1; i < i2; i++ {
			row[i] ^= 0xFF
		}
	}
}
