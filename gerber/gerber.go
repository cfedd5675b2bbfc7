// Package gerber parses Gerber RS-274X photoplotter files and turns
// the command stream into placed polygons in pixel units, ready for
// scan-line compositing.
package gerber

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/cocosip/go-gerber-raster/poly"
)

// Options are the plotting parameters of one parse.
type Options struct {
	// DPI is the output resolution in dots per inch.
	DPI float64

	// Grow expands every aperture outline perimeter by this many
	// pixels; negative values shrink.
	Grow float64

	// ScaleX and ScaleY scale the image per axis. Zero means 1.
	ScaleX, ScaleY float64
}

func (o *Options) normalize() {
	if o.DPI == 0 {
		o.DPI = 2400
	}
	if o.ScaleX == 0 {
		o.ScaleX = 1
	}
	if o.ScaleY == 0 {
		o.ScaleY = 1
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.DPI < 1 {
		return fmt.Errorf("DPI setting must be >= 1")
	}
	return nil
}

const maxWarnings = 30

// Gerber is one parsed input file: the finalised polygon list plus the
// image-level parameters and any warnings collected along the way.
type Gerber struct {
	// Polygons is the complete list needed to plot this file, in pixel
	// units, initialised, and sorted ascending by PixelMinY (stable by
	// creation number).
	Polygons []*poly.Polygon

	// VertexData owns every distinct vertex set referenced by Polygons.
	VertexData []*poly.VertexData

	// Messages holds the warnings produced while parsing.
	Messages []string

	// ImagePolarityDark is false when the file sets %IPNEG*%.
	ImagePolarityDark bool

	ImageName string
	LayerName string

	opts Options
	machine
	warningCount int
	line         int
}

// Parse reads a Gerber RS-274X stream and builds its polygon list.
// Warnings never abort; a returned error is a fatal parse error tagged
// with the input line where processing stopped.
func Parse(r io.Reader, opts Options) (*Gerber, error) {
	opts.normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := &Gerber{
		opts:              opts,
		ImagePolarityDark: true,
		line:              1,
	}
	g.initMachine()

	if err := g.run(bufio.NewReader(r)); err != nil {
		return nil, fmt.Errorf("%w. stopped at line %d", err, g.line)
	}
	if err := g.finalize(); err != nil {
		return nil, fmt.Errorf("%w. stopped at line %d", err, g.line)
	}
	return g, nil
}

// ParseFile parses the named Gerber file.
func ParseFile(path string, opts Options) (*Gerber, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts)
}

// warnf appends a warning. After 30 warnings a suppression notice is
// recorded and further warnings are dropped.
func (g *Gerber) warnf(format string, args ...any) {
	g.warningCount++
	switch {
	case g.warningCount < maxWarnings:
		g.Messages = append(g.Messages, fmt.Sprintf("Warning: %s at line %d", fmt.Sprintf(format, args...), g.line))
	case g.warningCount == maxWarnings:
		g.Messages = append(g.Messages, "Too many warnings, suppressing.")
	}
}

// finalize applies the image rotation, initialises every vertex set and
// polygon, numbers the polygons in creation order, and sorts the list
// for the compositor.
func (g *Gerber) finalize() error {
	for _, vd := range g.VertexData {
		vd.Rotate(g.imageRotate)
		if err := vd.Initialise(); err != nil {
			return fmt.Errorf("execution error (%w)", err)
		}
	}

	kept := g.Polygons[:0]
	for _, p := range g.Polygons {
		if p.Empty() {
			continue
		}
		p.Offset = p.Offset.Rotate(g.imageRotate)
		p.Initialise()
		p.Number = len(kept)
		kept = append(kept, p)
	}
	g.Polygons = kept

	if len(g.Polygons) == 0 {
		g.warnf("nothing to draw")
	}
	sortPolygons(g.Polygons)
	return nil
}

// Merge combines the polygon lists of several parsed files into one
// compositor input, renumbering so later files draw over earlier ones.
// Each input list keeps its internal order; the result is sorted by
// PixelMinY like the per-file lists.
func Merge(gerbers []*Gerber) []*poly.Polygon {
	var out []*poly.Polygon
	offset := 0
	for _, g := range gerbers {
		for _, p := range g.Polygons {
			p.Number += offset
			out = append(out, p)
		}
		offset += len(g.Polygons)
	}
	sortPolygons(out)
	return out
}

func sortPolygons(polys []*poly.Polygon) {
	// Ascending PixelMinY; creation number breaks ties so the
	// compositor sees a deterministic order.
	slices.SortStableFunc(polys, func(a, b *poly.Polygon) int {
		if a.PixelMinY != b.PixelMinY {
			return a.PixelMinY - b.PixelMinY
		}
		return a.Number - b.Number
	})
}
