package gerber

import (
	"errors"
	"fmt"
	"math"

	"github.com/cocosip/go-gerber-raster/aperture"
	"github.com/cocosip/go-gerber-raster/geom"
	"github.com/cocosip/go-gerber-raster/poly"
)

type drawingMode int

const (
	modeLinear1x drawingMode = iota
	modeLinear10x
	modeLinear01x
	modeLinear001x
	modeCircleCW
	modeCircleCCW
)

type unitKind int

const (
	unitUndefined unitKind = iota
	unitInch
	unitMillimeter
)

// machine is the plotter interpreter state driven by the parser.
type machine struct {
	coordInts     [2]int
	coordDecimals [2]int
	omitLeading   bool
	absolute      bool
	units         unitKind

	mode        drawingMode
	circular360 bool
	polygonFill bool
	lampOn      bool

	// drawingEnabled arms block execution; any X/Y/I/J or D01 sets it,
	// every executed block clears it.
	drawingEnabled bool

	x, y       float64
	oldX, oldY float64
	i, j       float64
	coordPrev  [2]float64

	imageOffset [2]float64
	scaleFactor [2]float64
	imageRotate float64 // radians, applied at finalize
	mirrorA     bool
	mirrorB     bool
	axisSwapped bool

	repeat struct {
		X, Y int
		I, J float64
	}

	lib          *aperture.Library
	sel          []*aperture.Aperture
	selIsDefault bool

	lastDrawnSel  *aperture.Aperture
	lastDrawnX    float64
	lastDrawnY    float64
	warnedNoApSel bool

	layerPolarityClear bool
}

// initMachine sets up the interpreter for a fresh file: no coordinate
// format, undefined units, standard macros and the default aperture.
func (g *Gerber) initMachine() {
	g.coordInts = [2]int{-1, -1}
	g.units = unitUndefined
	g.imageRotate = 0
	g.lib = aperture.NewLibrary()
	g.softReset()
	g.makeDefaultAperture()
}

// softReset reloads the drawing defaults. Used at startup and on M02;
// the coordinate format, units and aperture library survive, matching
// how commercial viewers treat end-of-program.
func (g *Gerber) softReset() {
	g.drawingEnabled = false
	g.lampOn = false
	g.warnedNoApSel = false
	g.layerPolarityClear = false
	g.scaleFactor = [2]float64{g.opts.ScaleX, g.opts.ScaleY}
	g.imageOffset = [2]float64{0, 0}
	g.repeat.X, g.repeat.Y = 1, 1
	g.repeat.I, g.repeat.J = 0, 0
	g.mirrorA, g.mirrorB = false, false
	g.axisSwapped = false
	g.mode = modeLinear1x
	g.circular360 = false // safest to assume single quadrant mode
	g.polygonFill = false
	// Plotter coordinates start at zero; some files draw without ever
	// setting one or both axes.
	g.x, g.y, g.oldX, g.oldY = 0, 0, 0, 0
	g.i, g.j = 0, 0
	g.coordPrev = [2]float64{0, 0}
	if g.lib != nil && g.lib.Default != nil {
		g.sel = g.lib.Default
		g.selIsDefault = true
		g.lastDrawnSel = nil
	}
}

// makeDefaultAperture installs a circle 1.5 pixels in diameter as the
// fallback aperture. Units are forced to inches just to build it.
func (g *Gerber) makeDefaultAperture() {
	saved := g.units
	g.units = unitInch
	vdata, err := g.lib.Instantiate(-1, "C", []float64{1.5 / g.dotsPerUnit()},
		g.dotsPerUnit(), g.opts.Grow, g.scaleFactor[0], g.scaleFactor[1], g.line)
	if err != nil {
		// the synthesized circle cannot fail to render
		panic(fmt.Sprintf("gerber: default aperture: %v", err))
	}
	g.VertexData = append(g.VertexData, vdata...)
	g.units = saved
	g.sel = g.lib.Default
	g.selIsDefault = true
}

// dotsPerUnit returns the pixel size of one Gerber dimensional unit.
// An undefined unit defaults to inches with a warning.
func (g *Gerber) dotsPerUnit() float64 {
	switch g.units {
	case unitMillimeter:
		return g.opts.DPI / 25.4
	case unitInch:
		return g.opts.DPI
	}
	g.warnf("Dimension specified without units. Setting units to inches.")
	g.units = unitInch
	return g.opts.DPI
}

func (g *Gerber) unitText() string {
	if g.units == unitMillimeter {
		return "mm"
	}
	return "\""
}

// coordinate converts one X/Y/I/J coordinate word to pixels. The
// decimal position comes from the format when leading zeroes are
// omitted, otherwise from trailing significance. I/J values are always
// absolute and skip the image offset. Any coordinate word arms drawing
// for the current block.
func (g *Gerber) coordinate(text string, axis int, isIJ bool) float64 {
	g.drawingEnabled = true

	if g.coordInts[0] < 0 {
		g.warnf("FS parameter missing, defaulting to FSLAX23Y23")
		g.coordInts = [2]int{2, 2}
		g.coordDecimals = [2]int{3, 3}
		g.omitLeading = true
		g.absolute = true
	}

	digits := text
	if len(digits) > 0 && (digits[0] == '-' || digits[0] == '+') {
		digits = digits[1:]
	}
	value := atofInt(text)

	if excess := len(digits) - (g.coordDecimals[axis] + g.coordInts[axis]); excess > 0 {
		g.warnf("found %d surplus digits in coordinate ", excess)
	}

	if g.omitLeading {
		value /= math.Pow(10, float64(g.coordDecimals[axis]))
	} else {
		value /= math.Pow(10, float64(len(digits)-g.coordInts[axis]))
	}

	value *= g.dotsPerUnit()
	if !isIJ {
		value += g.imageOffset[axis]
	}

	if isIJ || g.absolute {
		return value
	}
	g.coordPrev[axis] += value
	return g.coordPrev[axis]
}

// atofInt parses an optionally signed digit string as a float; the
// empty string (a bare axis letter) is zero.
func atofInt(s string) float64 {
	neg := false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v float64
	for ; i < len(s); i++ {
		v = v*10 + float64(s[i]-'0')
	}
	if neg {
		return -v
	}
	return v
}

// processD handles a D code: aperture selects (>=10), lamp control
// (01/02) and flashes (03). Any code other than D01 turns the lamp off.
func (g *Gerber) processD(code int) {
	if code >= 10 {
		chain, ok := g.lib.Select(code)
		if !ok {
			g.warnf("Aperture D%d has not been defined", code)
			chain = g.lib.Default
			g.selIsDefault = true
		} else {
			g.selIsDefault = false
		}
		g.sel = chain
	}
	if code == 3 {
		g.flashAperture(g.x, g.y)
	}
	if code == 1 {
		g.lampOn = true
		g.drawingEnabled = true
	} else {
		g.lampOn = false
	}
}

// processG handles a G code.
func (g *Gerber) processG(code int) {
	switch code {
	case 1:
		g.mode = modeLinear1x
	case 10:
		g.mode = modeLinear10x
	case 11:
		g.mode = modeLinear01x
	case 12:
		g.mode = modeLinear001x
	case 2:
		g.mode = modeCircleCW
	case 3:
		g.mode = modeCircleCCW
	case 74:
		g.circular360 = false
	case 75:
		g.circular360 = true
	case 70:
		g.units = unitInch // synonymous with %MOIN*%
	case 71:
		g.units = unitMillimeter // synonymous with %MOMM*%
	case 90:
		g.absolute = true
	case 91:
		g.absolute = false
	case 36:
		if !g.polygonFill {
			// a fill region always opens with the lamp off so the tool
			// can be positioned first
			g.lampOn = false
			g.polygonFill = true
			g.newPolygon()
		}
	case 37:
		g.polygonFill = false
		g.drawingEnabled = false
		if len(g.Polygons) > 0 {
			last := g.Polygons[len(g.Polygons)-1]
			last.VData.Scale(g.scaleFactor[0], -g.scaleFactor[1])
		}
	}
}

// processM handles an M code. M00 and M01 are ignored; M02 reloads the
// drawing defaults.
func (g *Gerber) processM(code int) {
	switch code {
	case 0, 1:
	case 2:
		g.softReset()
	default:
		g.warnf("ignoring unknown code M%02d", code)
	}
}

// newPolygon opens a fresh polygon with its own vertex data, registers
// the vertex data for finalisation, and applies the layer polarity.
func (g *Gerber) newPolygon() *poly.Polygon {
	p := &poly.Polygon{VData: &poly.VertexData{}}
	if g.layerPolarityClear {
		p.Polarity = poly.Clear
	}
	g.Polygons = append(g.Polygons, p)
	g.VertexData = append(g.VertexData, p.VData)
	return p
}

// flashAperture places every polygon of the selected aperture chain at
// (x, y). The polygons share the aperture's vertex data; only offset
// and polarity are per instance.
func (g *Gerber) flashAperture(x, y float64) {
	for _, ap := range g.sel {
		for _, proto := range ap.Polygons {
			p := &poly.Polygon{
				VData:    proto.VData,
				Polarity: proto.Polarity,
				Offset: geom.Point{
					X: x * g.scaleFactor[0],
					Y: -y * g.scaleFactor[1],
				},
			}
			if g.layerPolarityClear {
				p.Polarity = poly.Clear
			}
			g.Polygons = append(g.Polygons, p)
		}
	}
}

// resolveArc turns the current block's circular interpolation state
// into a canonical arc, warning on the quirky cases.
func (g *Gerber) resolveArc() geom.Arc {
	if (g.i < 0 || g.j < 0) && !g.circular360 {
		g.warnf("negative I or J found in single quadrant mode. Forcing to 360 degree mode.")
		g.circular360 = true
	}
	precision := math.Pow(10, -float64(min(g.coordDecimals[0], g.coordDecimals[1]))) * g.dotsPerUnit()
	arc := geom.ArcSpec{
		Start:         geom.Point{X: g.oldX, Y: g.oldY},
		End:           geom.Point{X: g.x, Y: g.y},
		Offset:        geom.Point{X: g.i, Y: g.j},
		Clockwise:     g.mode == modeCircleCW,
		MultiQuadrant: g.circular360,
	}.Resolve(precision)

	if arc.Degenerate {
		g.warnf("Zero arc radius - replacing with line segment.")
	} else if arc.Mismatch > 5*precision {
		g.warnf("Adjusting arc centre mismatch by %0.4f%s", arc.Mismatch/g.dotsPerUnit(), g.unitText())
	}
	return arc
}

// processDataBlock executes the accumulated block state when a data
// block terminates. Fill regions collect vertices; otherwise a lit
// lamp draws a trace. The block always ends with I/J zeroed, the tool
// position promoted, and drawing disarmed.
func (g *Gerber) processDataBlock() error {
	dX := g.x - g.oldX
	dY := g.y - g.oldY
	toolShift := math.Hypot(dX, dY)

	if g.lampOn && g.drawingEnabled {
		if g.polygonFill {
			last := g.Polygons[len(g.Polygons)-1]
			if last.Empty() {
				last.VData.AddXY(g.oldX, g.oldY)
			}
			if g.mode == modeCircleCW || g.mode == modeCircleCCW {
				arc := g.resolveArc()
				if !arc.Degenerate {
					last.VData.AddArc(arc.StartAngle, arc.EndAngle, arc.Radius,
						arc.Centre.X, arc.Centre.Y, g.mode == modeCircleCW)
				} else {
					last.VData.AddXY(g.x, g.y)
				}
			} else {
				last.VData.AddXY(g.x, g.y)
			}
		} else {
			if err := g.drawTrace(dX, dY, toolShift); err != nil {
				return err
			}
		}
	}

	// Missing I or J coordinates in a block mean zero; undocumented but
	// relied on by real files.
	g.i, g.j = 0, 0
	g.oldX, g.oldY = g.x, g.y
	g.drawingEnabled = false
	return nil
}

// drawTrace draws a line or arc trace to the current tool position
// with the selected aperture.
func (g *Gerber) drawTrace(dX, dY, toolShift float64) error {
	if !g.warnedNoApSel && g.selIsDefault {
		g.warnf("Drawing started without aperture select. Using default")
		g.warnedNoApSel = true
	}

	head := g.sel[0]
	isArc := g.mode == modeCircleCW || g.mode == modeCircleCCW
	if (isArc && head.Primitive != aperture.StandardCircle) ||
		(g.mode == modeLinear1x && head.Primitive != aperture.StandardCircle && head.Primitive != aperture.StandardRectangle) {
		return fmt.Errorf("D%d mapped to (%s) aperture which is not supported for drawing traces\n"+
			"Supported shapes are:\n"+
			" C or R     for linear traces\n"+
			" C          for arc traces",
			head.DCode, head.Primitive.Name())
	}

	// Flash at the trace start when the pen was last lifted somewhere
	// else or a different aperture drew last.
	if g.lastDrawnSel != head || g.lastDrawnX != g.oldX || g.lastDrawnY != g.oldY {
		g.flashAperture(g.oldX, g.oldY)
	}

	width := head.StdWidth
	height := head.StdHeight

	// Keep the trace at least one pixel thick after scaling; narrower
	// slivers fall between scan lines.
	if f := math.Abs(g.scaleFactor[1]); f > 1e-10 && height*f < 1.1 {
		height = 1.1 / f
	}

	switch g.mode {
	case modeLinear1x:
		if toolShift > 1 {
			var sx, sy float64
			if head.Primitive == aperture.StandardCircle {
				// trace width is the diameter, minus a shaving so the body
				// rectangle never lands exactly on the end-cap boundary
				traceWidth := math.Max(height, width) - 0.05
				sy = traceWidth * dX / toolShift
				sx = traceWidth*traceWidth - sy*sy
				if sx < 0 {
					sx = 0
				}
				sx = math.Sqrt(sx) / 2
				sy = sy / 2
				if dY > 0 {
					sy = -sy
				}
			} else {
				// slide the rectangle corners along the motion vector
				sx = width / 2
				sy = -height / 2
				if dX*dY < 0 {
					sx = -sx
				}
			}
			p := g.newPolygon()
			p.VData.AddXY(g.oldX+sx, g.oldY+sy)
			p.VData.AddXY(g.oldX-sx, g.oldY-sy)
			p.VData.AddXY(g.x-sx, g.y-sy)
			p.VData.AddXY(g.x+sx, g.y+sy)
			p.VData.Scale(g.scaleFactor[0], -g.scaleFactor[1])
		}
		if toolShift > 0 {
			// round (or square) the end of the stroke; a zero-length move
			// keeps only the initial flash
			g.flashAperture(g.x, g.y)
		}

	case modeCircleCW, modeCircleCCW:
		arc := g.resolveArc()
		if !arc.Degenerate {
			p := g.newPolygon()
			clockwise := g.mode == modeCircleCW
			p.VData.AddArc(arc.StartAngle, arc.EndAngle, arc.Radius-height/2,
				arc.Centre.X, arc.Centre.Y, clockwise)
			p.VData.AddArc(arc.EndAngle, arc.StartAngle, arc.Radius+height/2,
				arc.Centre.X, arc.Centre.Y, !clockwise)
			p.VData.Scale(g.scaleFactor[0], -g.scaleFactor[1])
			g.oldX = arc.Stopped.X
			g.oldY = arc.Stopped.Y
		}

		// The standard does not force the arc's stop point onto the next
		// tool position; bridge any gap with a linear trace like other
		// viewers do.
		saved := g.mode
		g.mode = modeLinear1x
		g.lastDrawnSel = head
		if err := g.processDataBlock(); err != nil {
			g.mode = saved
			return err
		}
		g.mode = saved

	default:
		return errors.New("drawing mode unsupported in current version, please contact author")
	}

	g.lastDrawnX = g.x
	g.lastDrawnY = g.y
	g.lastDrawnSel = head
	g.drawingEnabled = false
	return nil
}
