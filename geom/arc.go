package geom

import "math"

// ArcSpec describes a circular interpolation request taken from the
// plotter state: start and end tool positions, the I,J centre offsets
// and the interpolation direction. All values are in pixel units.
type ArcSpec struct {
	Start, End Point
	Offset     Point // I,J relative centre offsets
	Clockwise  bool

	// MultiQuadrant selects G75 semantics: Offset is signed and the
	// centre is snapped so start and end lie on the arc. In G74 mode
	// Offset carries unsigned magnitudes and the centre sign is found
	// by candidate search.
	MultiQuadrant bool
}

// Arc is a resolved arc in canonical centre/radius/angle form.
type Arc struct {
	Centre     Point
	Stopped    Point // Centre + Polar(Radius, EndAngle); not always the end tool position
	Radius     float64
	StartAngle float64
	EndAngle   float64

	// Degenerate marks an arc too small to plot; the caller replaces it
	// with a line segment.
	Degenerate bool

	// Mismatch is the distance between the snapped centre and the centre
	// named by the I,J offsets. The caller warns when it exceeds five
	// times the coordinate precision.
	Mismatch float64
}

// Resolve converts the spec into a canonical arc. precision is the
// size of one least-significant coordinate digit in pixels; arcs with
// radius below twice that are flagged degenerate.
func (s ArcSpec) Resolve(precision float64) Arc {
	var arc Arc
	i, j := s.Offset.X, s.Offset.Y

	if !s.MultiQuadrant && s.Offset.Abs() >= 0.01 {
		// Single quadrant mode: I and J are magnitudes. Pick the signs by
		// testing all four candidate centres, keeping the one whose sweep
		// direction matches the interpolation mode and whose radius error
		// between the start and end points is smallest.
		se := s.End.Sub(s.Start)
		minDeltaR := math.MaxFloat64
		wi, wj := i, j
		for n := 0; n < 4; n++ {
			ij := Point{i, j}
			deltaR := math.Abs(ij.Abs() - ij.Add(s.Start).Sub(s.End).Abs())
			theta := se.Arg() - ij.Arg()
			if theta > math.Pi {
				theta -= 2 * math.Pi
			}
			if theta < -math.Pi {
				theta += 2 * math.Pi
			}
			if !s.Clockwise {
				theta = -theta
			}
			if theta >= 0 && deltaR < minDeltaR {
				minDeltaR = deltaR
				wi, wj = i, j
			}
			i = -i
			if n == 1 {
				j = -j
			}
		}
		i, j = wi, wj
	}

	arc.Centre = Point{i, j}.Add(s.Start)

	// Snap the centre so the start and end tool positions both lie on the
	// arc. Impossible (and unnecessary) when they coincide, which means a
	// full circle.
	if s.MultiQuadrant && s.Start != s.End {
		l1 := NewLine(s.Start, s.End)
		l2 := l1
		l2.MoveParallel(arc.Centre)
		l1.MovePerpendicular(s.Start.Add(s.End).Div(2))
		arc.Centre = l1.Intersect(l2)
	}

	arc.Radius = arc.Centre.Sub(s.Start).Abs()
	arc.StartAngle = s.Start.Sub(arc.Centre).Arg()
	arc.EndAngle = s.End.Sub(arc.Centre).Arg()
	arc.Stopped = arc.Centre.Add(Polar(arc.Radius, arc.EndAngle))
	if math.Abs(arc.StartAngle-arc.EndAngle) < 1e-10 {
		// equal start and end angles mean a full circle
		arc.EndAngle += 2 * math.Pi
	}

	if arc.Radius < 2*precision || (i == 0 && j == 0) {
		arc.Degenerate = true
		return arc
	}

	arc.Mismatch = arc.Centre.Sub(Point{i, j}.Add(s.Start)).Abs()
	return arc
}
