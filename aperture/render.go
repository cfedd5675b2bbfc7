package aperture

import (
	"errors"
	"fmt"
	"math"

	"github.com/cocosip/go-gerber-raster/geom"
	"github.com/cocosip/go-gerber-raster/poly"
)

// render materialises the aperture's polygons in pixel units.
// dotsPerUnit converts Gerber dimensions to pixels, grow expands (or,
// negative, shrinks) every outline perimeter by that many pixels, and
// modifierCount is the number of modifiers given in the %AD*% block
// (standard apertures change meaning with the count). vars are the
// values bound to $1..$n.
//
// Dimension quirks from long-standing film compatibility are kept
// exactly: rectangles lose 0.5 pixels before grow, shapes are clamped
// to one pixel minimum, thermals clamp the hair thickness against the
// inner radius.
func (a *Aperture) render(dotsPerUnit, grow float64, modifierCount int, vars []float64) error {
	var firstErr error
	p := func(idx int) float64 {
		v, err := a.param(idx, vars)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}

	rotation := 0.0
	standardHoleX := 0.0
	standardHoleY := 0.0

	switch a.Primitive {

	case StandardCircle, StandardObround, SpecialCircle:
		var xsize, ysize, xCenter, yCenter float64
		pg := a.newPolygon()

		switch a.Primitive {
		case StandardCircle:
			xsize = p(0) * dotsPerUnit
			ysize = xsize
			if modifierCount > 1 {
				standardHoleX = p(1) * dotsPerUnit
			}
			if modifierCount > 2 {
				standardHoleY = p(2) * dotsPerUnit
			}
		case StandardObround:
			xsize = p(0) * dotsPerUnit
			ysize = p(1) * dotsPerUnit
			if modifierCount > 2 {
				standardHoleX = p(2) * dotsPerUnit
			}
			if modifierCount > 3 {
				standardHoleY = p(3) * dotsPerUnit
			}
		case SpecialCircle:
			if p(0) == 1 {
				pg.Polarity = poly.Clear
			}
			xsize = p(1) * dotsPerUnit
			ysize = xsize
			xCenter = p(2) * dotsPerUnit
			yCenter = p(3) * dotsPerUnit
		}
		if firstErr != nil {
			return firstErr
		}
		a.StdWidth = xsize
		a.StdHeight = ysize

		if xsize < 0 || ysize < 0 {
			return errors.New("dimension must be > 0")
		}
		xsize += grow
		ysize += grow
		// zero radius circles plot as a single pixel
		if xsize < 1 {
			xsize = 1
		}
		if ysize < 1 {
			ysize = 1
		}

		arcOffset := (xsize - ysize) / 2
		if xsize > ysize { // horizontal obround
			pg.VData.AddArc(0.5*math.Pi, 1.5*math.Pi, ysize/2, xCenter-arcOffset, yCenter, false)
			pg.VData.AddArc(1.5*math.Pi, 2.5*math.Pi, ysize/2, xCenter+arcOffset, yCenter, false)
		} else { // vertical obround or circle
			pg.VData.AddArc(0, math.Pi, xsize/2, xCenter, yCenter-arcOffset, false)
			pg.VData.AddArc(math.Pi, 2*math.Pi, xsize/2, xCenter, yCenter+arcOffset, false)
		}

	case StandardRectangle:
		pg := a.newPolygon()

		xSize := p(0)*dotsPerUnit - 0.5 + grow
		ySize := xSize
		// (RS-274X botch) a single modifier means a square
		if modifierCount > 1 {
			ySize = p(1)*dotsPerUnit - 0.5 + grow
		}
		if modifierCount > 2 {
			standardHoleX = p(2) * dotsPerUnit
		}
		if modifierCount > 3 {
			standardHoleY = p(3) * dotsPerUnit
		}
		if firstErr != nil {
			return firstErr
		}

		if xSize <= 0 {
			xSize = 1
		}
		if ySize <= 0 {
			ySize = 1
		}
		a.StdWidth = xSize
		a.StdHeight = ySize

		pg.VData.AddRectangle(xSize, ySize, 0, 0)

	case StandardPolygon, SpecialPolygon:
		var diameter, xCentre, yCentre float64
		var nsides int
		pg := a.newPolygon()

		if a.Primitive == StandardPolygon {
			diameter = p(0) * dotsPerUnit
			nsides = int(p(1))
			if modifierCount > 2 {
				rotation = p(2) * math.Pi / 180
			}
			if modifierCount > 3 {
				standardHoleX = p(3) * dotsPerUnit
			}
			if modifierCount > 4 {
				standardHoleY = p(4) * dotsPerUnit
			}
		} else {
			if p(0) == 1 {
				pg.Polarity = poly.Clear
			}
			nsides = int(p(1))
			xCentre = p(2) * dotsPerUnit
			yCentre = p(3) * dotsPerUnit
			diameter = p(4) * dotsPerUnit
			rotation = p(5) * math.Pi / 180
		}
		if firstErr != nil {
			return firstErr
		}

		diameter += grow
		if nsides < 3 || nsides > 24 {
			return errors.New("number of sides out of range 3 to 24")
		}
		if diameter < 1 {
			diameter = 1
		}
		pg.VData.AddRegularPolygon(diameter/2, rotation, nsides, xCentre, yCentre)

	case SpecialThermal:
		rotation = math.Mod(p(5)*math.Pi/180, math.Pi/2)
		hairThickness := p(4)*dotsPerUnit + grow
		insideRadius := p(3)/2*dotsPerUnit - grow/2
		outsideRadius := p(2)/2*dotsPerUnit + grow/2
		yCentre := p(1) * dotsPerUnit
		xCentre := p(0) * dotsPerUnit
		if firstErr != nil {
			return firstErr
		}

		if hairThickness >= 2.4*insideRadius {
			hairThickness = 2.4 * insideRadius
		}
		if hairThickness < 1 {
			hairThickness = 1
		}
		if insideRadius < 1 {
			insideRadius = 1
		}
		if outsideRadius < 2 {
			break
		}
		if insideRadius >= outsideRadius {
			return errors.New("inside radius >= outside radius")
		}

		argOut := math.Pi/2 - math.Acos(hairThickness/2/outsideRadius)
		argIn := math.Pi/2 - math.Acos(hairThickness/2/insideRadius)

		theta := rotation
		for i := 0; i < 4; i++ {
			pg := a.newPolygon()
			pg.VData.AddArc(theta+argOut, theta+(math.Pi/2-argOut), outsideRadius, xCentre, yCentre, false)
			pg.VData.AddArc(theta+(math.Pi/2-argIn), theta+argIn, insideRadius, xCentre, yCentre, true)
			theta += math.Pi / 2
		}

	case SpecialLineVector, SpecialLineVector2, SpecialLineCenter, SpecialLineLowerLeft:
		// A solid rectangle defined by length, height, rotation and an
		// anchor. The rotation point in RS-274X is ambiguous; like
		// GerbTool and Altium, the anchor rotates about the aperture
		// origin while length and height do not.
		var length, height, theta float64
		var centre geom.Point
		pg := a.newPolygon()

		if p(0) == 1 {
			pg.Polarity = poly.Clear
		}

		switch a.Primitive {
		case SpecialLineCenter:
			length = p(1) * dotsPerUnit
			height = p(2) * dotsPerUnit
			centre.X = p(3) * dotsPerUnit
			centre.Y = -p(4) * dotsPerUnit
			theta = p(5) / 180 * math.Pi
			centre = centre.Rotate(theta)

		case SpecialLineVector, SpecialLineVector2:
			height = p(1) * dotsPerUnit
			start := geom.Point{X: p(2) * dotsPerUnit, Y: p(3) * dotsPerUnit}
			end := geom.Point{X: p(4) * dotsPerUnit, Y: p(5) * dotsPerUnit}
			theta = p(6) * math.Pi / 180
			start = start.Rotate(theta)
			end = end.Rotate(theta)
			length = start.Sub(end).Abs()
			centre = start.Add(end).Div(2)
			theta = end.Sub(start).Arg()

		case SpecialLineLowerLeft:
			length = p(1) * dotsPerUnit
			height = p(2) * dotsPerUnit
			centre.X = length/2 + p(3)*dotsPerUnit
			centre.Y = height/2 - p(4)*dotsPerUnit
			theta = p(5) * math.Pi / 180
			centre = centre.Rotate(theta)
		}
		if firstErr != nil {
			return firstErr
		}

		length += grow
		height += grow
		if length <= 0 {
			return errors.New("illegal line width, <= 0")
		}
		if height <= 0 {
			return errors.New("illegal line height, <= 0")
		}
		if length < 1 {
			length = 1
		}
		if height < 1 {
			height = 1
		}

		pg.VData.AddRectangle(length, height, 0, 0)
		pg.VData.Rotate(theta)
		pg.VData.Shift(centre.X, centre.Y)

	case SpecialOutline:
		pg := a.newPolygon()
		if p(0) == 1 {
			pg.Polarity = poly.Clear
		}
		numPoints := int(p(1))
		if firstErr != nil {
			return firstErr
		}

		// The last modifier is always the rotation, regardless of
		// surplus vertices.
		rot, err := a.Params[len(a.Params)-1].Eval(vars)
		if err != nil {
			return err
		}
		rotation = rot * math.Pi / 180

		if numPoints*2+3 > len(a.Params) {
			return errors.New("specified number of points exceeds number of vertices listed")
		}
		for i := 0; i < numPoints; i++ {
			pt := geom.Point{X: p(i*2+2) * dotsPerUnit, Y: p(i*2+3) * dotsPerUnit}
			pg.VData.Add(pt.Rotate(rotation))
		}
		if firstErr != nil {
			return firstErr
		}

	case SpecialMoire:
		xCentre := p(0) * dotsPerUnit
		yCentre := p(1) * dotsPerUnit
		diameter := p(2)*dotsPerUnit + grow
		thickness := p(3)*dotsPerUnit + grow
		gap := p(4)*dotsPerUnit - grow
		numCircles := int(p(5))
		hairThickness := p(6)*dotsPerUnit + grow
		hairLength := p(7)*dotsPerUnit + grow
		rotation = math.Mod(p(8)*math.Pi/180, math.Pi/2)
		if firstErr != nil {
			return firstErr
		}

		if hairThickness < 1 {
			hairThickness = 1
		}
		if hairLength < 1 {
			hairLength = 1
		}
		if gap < 1 {
			gap = 1
		}

		for i := 0; i < numCircles; i++ {
			if diameter < 1 {
				break
			}
			if thickness > diameter/2 {
				thickness = diameter / 2
			}
			pg := a.newPolygon()
			pg.VData.AddArc(0, 2*math.Pi, diameter/2, xCentre, yCentre, false)
			pg.VData.AddArc(2*math.Pi, 0, diameter/2-thickness, xCentre, yCentre, true)
			pg.VData.Rotate(rotation)
			diameter -= 2 * (thickness + gap)
		}
		pg := a.newPolygon()
		pg.VData.AddRectangle(hairThickness, hairLength, xCentre, yCentre)
		pg.VData.Rotate(rotation)
		pg = a.newPolygon()
		pg.VData.AddRectangle(hairLength, hairThickness, xCentre, yCentre)
		pg.VData.Rotate(rotation)

	default:
		return fmt.Errorf("unsupported aperture primitive %d", int(a.Primitive))
	}
	if firstErr != nil {
		return firstErr
	}

	// A hole modifier on a standard C, R or O aperture subtracts a final
	// clear circle or rectangle.
	if standardHoleX > 0.5 {
		pg := a.newPolygon()
		pg.Polarity = poly.Clear
		if standardHoleY > 0.5 {
			pg.VData.AddRectangle(standardHoleX, standardHoleY, 0, 0)
		} else {
			pg.VData.AddArc(0, 2*math.Pi, standardHoleX/2, 0, 0, false)
		}
	}
	return nil
}
