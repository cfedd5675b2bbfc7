// Package poly holds the polygon model shared by aperture rendering and
// the compositor: vertex sets with cached scan-line fill tables, and
// placed polygon instances with pixel bounds and polarity.
package poly

import "github.com/cocosip/go-gerber-raster/geom"

// Polarity selects how a polygon's pixels are written to the bitmap.
type Polarity uint8

const (
	// Dark paints pixels (bits set).
	Dark Polarity = iota
	// Clear erases pixels (bits cleared).
	Clear
	// XOR inverts pixels.
	XOR
)

func (p Polarity) String() string {
	switch p {
	case Dark:
		return "dark"
	case Clear:
		return "clear"
	case XOR:
		return "xor"
	}
	return "invalid"
}

// Polygon is a placed instance of a vertex set. Many polygons may share
// one VertexData (flashes of the same aperture at different positions);
// each instance carries its own offset, polarity and creation number.
type Polygon struct {
	VData    *VertexData
	Offset   geom.Point
	Polarity Polarity

	// Number records creation order. The compositor paints active
	// polygons in ascending Number so overlapping features keep the
	// draw order of the Gerber file.
	Number int

	PixelMinX, PixelMinY int
	PixelMaxX, PixelMaxY int
	PixelOffsetX         int
}

// Empty reports whether the polygon has no vertices.
func (p *Polygon) Empty() bool { return p.VData == nil || p.VData.Empty() }

// Initialise computes the pixel bounding box from the shared vertex
// data and this instance's offset. The vertex data must already be
// initialised.
func (p *Polygon) Initialise() {
	p.PixelMinX = roundDot(p.VData.MinX + p.Offset.X)
	p.PixelMaxX = p.PixelMinX + p.VData.pixelWidth
	p.PixelMinY = roundDot(p.VData.MinY + p.Offset.Y)
	p.PixelMaxY = p.PixelMinY + p.VData.pixelHeight
	p.PixelOffsetX = roundDot(p.Offset.X)
}

// Row returns the sorted x intersections for scan line
// y = PixelMinY + i, as vertex-local coordinates. The caller adds
// PixelOffsetX (plus any image offset) before painting. Each returned
// slice holds an even number of values forming [x1,x2] fill pairs.
func (p *Polygon) Row(i int) []int { return p.VData.Row(i) }
