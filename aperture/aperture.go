// Package aperture implements the RS-274X aperture model: macro
// templates holding expression-valued parameters, instantiation on
// %AD*% blocks, and rendering of every primitive kind into polygons in
// pixel units.
package aperture

import (
	"fmt"

	"github.com/cocosip/go-gerber-raster/expr"
	"github.com/cocosip/go-gerber-raster/poly"
)

// Primitive identifies an aperture shape. Standard apertures use their
// RS-274X letter code; special (macro) primitives use their numeric
// code.
type Primitive int

const (
	StandardCircle    Primitive = 'C'
	StandardRectangle Primitive = 'R'
	StandardObround   Primitive = 'O'
	StandardPolygon   Primitive = 'P'

	SpecialCircle        Primitive = 1
	SpecialLineVector    Primitive = 2
	SpecialOutline       Primitive = 4
	SpecialPolygon       Primitive = 5
	SpecialMoire         Primitive = 6
	SpecialThermal       Primitive = 7
	SpecialLineVector2   Primitive = 20
	SpecialLineCenter    Primitive = 21
	SpecialLineLowerLeft Primitive = 22

	PrimitiveInvalid Primitive = -1
)

// Name returns the primitive's descriptive RS-274X name, used in error
// and warning messages.
func (p Primitive) Name() string {
	switch p {
	case StandardCircle:
		return "standard circle"
	case StandardRectangle:
		return "standard rectangle"
	case StandardObround:
		return "standard obround"
	case StandardPolygon:
		return "standard polygon"
	case SpecialCircle:
		return "special circle"
	case SpecialLineVector, SpecialLineVector2:
		return "special line vector"
	case SpecialLineCenter:
		return "special line centre"
	case SpecialLineLowerLeft:
		return "special lower left"
	case SpecialOutline:
		return "special outline"
	case SpecialPolygon:
		return "special polygon"
	case SpecialMoire:
		return "special moire"
	case SpecialThermal:
		return "special thermal"
	}
	return "invalid primitive"
}

// Aperture is one primitive of a macro: a template until a %AD*% block
// binds parameter values and renders it, an instance afterwards. A
// macro made of several primitives becomes a chain of Apertures
// sharing one D-code; the library keeps them in definition order.
type Aperture struct {
	Primitive Primitive
	MacroName string
	DCode     int

	// Params holds one expression tree per macro modifier. The trees
	// are immutable and shared between the template and its instances.
	Params []expr.Node

	// Polygons is produced by render, in pixel units centred on the
	// flash origin.
	Polygons []*poly.Polygon

	// StdWidth and StdHeight record the rendered size of a standard C
	// or R aperture for trace drawing. They are also set for standard O
	// and special circle primitives, and are zero for the other kinds.
	StdWidth  float64
	StdHeight float64

	// Line is the input line of the defining %AD*% block.
	Line int
}

// param evaluates parameter idx against vars, reporting the 1-based
// modifier position on failure.
func (a *Aperture) param(idx int, vars []float64) (float64, error) {
	if idx >= len(a.Params) {
		return 0, fmt.Errorf("modifier expected at position %d", idx+1)
	}
	v, err := a.Params[idx].Eval(vars)
	if err != nil {
		return 0, fmt.Errorf("%w at parameter %d", err, idx+1)
	}
	return v, nil
}

// clone returns a copy of the template ready for instantiation.
// Parameter trees are shared; polygons are not.
func (a *Aperture) clone() *Aperture {
	c := *a
	c.Polygons = nil
	return &c
}

// newPolygon appends a fresh dark polygon to the aperture and returns it.
func (a *Aperture) newPolygon() *poly.Polygon {
	p := &poly.Polygon{VData: &poly.VertexData{}}
	a.Polygons = append(a.Polygons, p)
	return p
}
