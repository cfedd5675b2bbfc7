package aperture

import (
	"fmt"

	"github.com/cocosip/go-gerber-raster/expr"
	"github.com/cocosip/go-gerber-raster/poly"
)

// Library is the aperture catalog of one Gerber file: macro templates
// keyed by name, instantiated apertures keyed by D-code, and the
// default aperture used when drawing starts without a select.
//
// A macro defined with several primitives is kept as an ordered
// template list under its name; instantiation renders the whole list,
// giving every member the same D-code, so one flash expands to several
// primitives drawn in definition order.
type Library struct {
	macros  map[string][]*Aperture
	byDCode map[int][]*Aperture

	// Default is the fallback aperture chain: a circle 1.5 pixels in
	// diameter, selected until the file selects one and used (with a
	// warning) when an undefined D-code is named.
	Default []*Aperture
}

// NewLibrary returns a library pre-seeded with the standard aperture
// macros C, R, O and P. Each takes up to five variable modifiers
// $1..$5, bound by the %AD*% block.
func NewLibrary() *Library {
	lib := &Library{
		macros:  make(map[string][]*Aperture),
		byDCode: make(map[int][]*Aperture),
	}
	params := make([]expr.Node, 5)
	for i := range params {
		params[i] = expr.Var(i)
	}
	for name, prim := range map[string]Primitive{
		"C": StandardCircle,
		"R": StandardRectangle,
		"O": StandardObround,
		"P": StandardPolygon,
	} {
		lib.macros[name] = []*Aperture{{
			Primitive: prim,
			MacroName: name,
			DCode:     -1,
			Params:    params,
		}}
	}
	return lib
}

// DefineMacroPrimitive appends one primitive template to the macro
// called name, creating the macro on first use. Primitives under one
// name form a composite chain instantiated together.
func (l *Library) DefineMacroPrimitive(name string, primitive Primitive, params []expr.Node) {
	l.macros[name] = append(l.macros[name], &Aperture{
		Primitive: primitive,
		MacroName: name,
		DCode:     -1,
		Params:    params,
	})
}

// Instantiate processes a %AD*% block: the named macro's templates are
// copied, their parameters evaluated against vars, and each primitive
// rendered at dotsPerUnit with the given perimeter grow. The rendered
// vertex data is scaled by (scaleX, -scaleY) so polygons land in image
// pixel space. dcode of -1 installs the chain as the default aperture;
// any other code replaces a previous binding for that code.
//
// The freshly created vertex data sets are returned so the caller can
// register them for the finalisation pass.
func (l *Library) Instantiate(dcode int, name string, vars []float64, dotsPerUnit, grow, scaleX, scaleY float64, line int) ([]*poly.VertexData, error) {
	templates := l.macros[name]
	if len(templates) == 0 {
		return nil, fmt.Errorf("the referring macro aperture name '%s' is undefined", name)
	}

	chain := make([]*Aperture, 0, len(templates))
	var vdata []*poly.VertexData
	for i, tmpl := range templates {
		ap := tmpl.clone()
		ap.DCode = dcode
		ap.Line = line
		if err := ap.render(dotsPerUnit, grow, len(vars), vars); err != nil {
			return nil, fmt.Errorf("%w in primitive index %d (%s) in macro '%s' mapped from D%d",
				err, i+1, ap.Primitive.Name(), name, dcode)
		}
		for _, pg := range ap.Polygons {
			pg.VData.Scale(scaleX, -scaleY)
			vdata = append(vdata, pg.VData)
		}
		chain = append(chain, ap)
	}

	if dcode < 0 {
		l.Default = chain
	} else {
		l.byDCode[dcode] = chain
	}
	return vdata, nil
}

// Select returns the aperture chain bound to dcode. ok is false when
// the code was never defined; callers fall back to Default with a
// warning.
func (l *Library) Select(dcode int) (chain []*Aperture, ok bool) {
	chain, ok = l.byDCode[dcode]
	return chain, ok
}
