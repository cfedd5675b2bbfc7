package raster

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cocosip/go-gerber-raster/poly"
)

// Options configures the compositor.
type Options struct {
	// Border is the padding in pixels added on every side of the
	// polygon bounding box. Fractional values enlarge the canvas; the
	// drawing offset uses the floor.
	Border float64

	// RowsPerStrip is the strip height. Zero, or a value larger than
	// the image, yields a single strip.
	RowsPerStrip int

	// PolarityDark selects the global polarity: true starts from a
	// blank (all-white) canvas and dark polygons set bits; false starts
	// all-dark and the polygon polarities invert.
	PolarityDark bool

	// Workers bounds the number of strips rasterized concurrently.
	// Values below 2 select the serial path. Strips are always emitted
	// to the sink in y order.
	Workers int
}

// Bounds is the pixel bounding box of a polygon list.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

// BoundsOf computes the united pixel bounds of all polygons. ok is
// false for an empty list.
func BoundsOf(polys []*poly.Polygon) (b Bounds, ok bool) {
	if len(polys) == 0 {
		return b, false
	}
	b = Bounds{MinX: math.MaxInt, MinY: math.MaxInt, MaxX: math.MinInt, MaxY: math.MinInt}
	for _, p := range polys {
		b.MinX = min(b.MinX, p.PixelMinX)
		b.MaxX = max(b.MaxX, p.PixelMaxX)
		b.MinY = min(b.MinY, p.PixelMinY)
		b.MaxY = max(b.MaxY, p.PixelMaxY)
	}
	return b, true
}

// ImageSize returns the canvas dimensions for bounds b under opts.
func ImageSize(b Bounds, opts Options) (width, height int) {
	width = int(math.Ceil(float64(b.MaxX-b.MinX) + 2*opts.Border + 1))
	height = int(math.Ceil(float64(b.MaxY-b.MinY) + 2*opts.Border + 1))
	return width, height
}

// Composite rasterizes polys onto a canvas sized by their bounds plus
// the border, and hands each strip to sink in y order. The polygon
// list must be finalised: every polygon initialised, in pixel units,
// sorted ascending by PixelMinY with creation number as tiebreaker.
//
// Polygons active on a scan line paint in ascending creation number,
// preserving the draw order of the Gerber stream; each polygon's
// effective polarity is inverted when the global polarity is clear.
func Composite(polys []*poly.Polygon, opts Options, sink StripSink) error {
	b, ok := BoundsOf(polys)
	if !ok {
		return ErrNoImage
	}
	if opts.Border < 0 {
		return fmt.Errorf("%w: negative border", ErrInvalidOptions)
	}
	width, height := ImageSize(b, opts)
	rowsPerStrip := opts.RowsPerStrip
	if rowsPerStrip <= 0 || rowsPerStrip > height {
		rowsPerStrip = height
	}
	bytesPerRow := (width + 7) >> 3

	border := int(math.Floor(opts.Border))
	xOffset := border - b.MinX
	yTop := b.MinY - border // image row 0 in polygon y coordinates

	stripCount := (height + rowsPerStrip - 1) / rowsPerStrip
	render := func(strip int, buf []byte) int {
		ystart := yTop + strip*rowsPerStrip
		rows := min(rowsPerStrip, height-strip*rowsPerStrip)

		fill := byte(0x00)
		if !opts.PolarityDark {
			fill = 0xFF
		}
		for i := range buf {
			buf[i] = fill
		}

		// Polygons intersecting this strip, in creation order. polys is
		// min-y sorted so the collection scan stops early.
		var overlap []*poly.Polygon
		for _, p := range polys {
			if p.PixelMinY >= ystart+rows {
				break
			}
			if p.PixelMaxY < ystart {
				continue
			}
			overlap = append(overlap, p)
		}
		slices.SortFunc(overlap, func(a, b *poly.Polygon) int { return a.Number - b.Number })

		for y := ystart; y < ystart+rows && y <= b.MaxY; y++ {
			row := buf[(y-ystart)*bytesPerRow : (y-ystart+1)*bytesPerRow]
			for _, p := range overlap {
				if y < p.PixelMinY || y > p.PixelMaxY {
					continue
				}
				pol := p.Polarity
				if !opts.PolarityDark {
					switch pol {
					case poly.Dark:
						pol = poly.Clear
					case poly.Clear:
						pol = poly.Dark
					}
				}
				xs := p.Row(y - p.PixelMinY)
				for i := 0; i+1 < len(xs); i += 2 {
					PaintRun(row, xOffset+p.PixelOffsetX+xs[i], xOffset+p.PixelOffsetX+xs[i+1], pol)
				}
			}
		}
		return rows
	}

	if opts.Workers < 2 {
		buf := make([]byte, bytesPerRow*rowsPerStrip)
		for strip := 0; strip < stripCount; strip++ {
			rows := render(strip, buf)
			if err := sink.WriteStrip(buf[:bytesPerRow*rows], rows); err != nil {
				return err
			}
		}
		return nil
	}

	// Parallel path: strips are independent once the scan-line tables
	// are read-only, so render Workers strips at a time and emit each
	// batch in order.
	for base := 0; base < stripCount; base += opts.Workers {
		n := min(opts.Workers, stripCount-base)
		bufs := make([][]byte, n)
		rows := make([]int, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				bufs[i] = make([]byte, bytesPerRow*rowsPerStrip)
				rows[i] = render(base+i, bufs[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := sink.WriteStrip(bufs[i][:bytesPerRow*rows[i]], rows[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
