package geom_test

import (
	"math"
	"testing"

	"github.com/cocosip/go-gerber-raster/geom"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPointOps(t *testing.T) {
	p := geom.Point{X: 3, Y: 4}
	q := geom.Point{X: -1, Y: 2}

	if got := p.Add(q); got != (geom.Point{X: 2, Y: 6}) {
		t.Errorf("Add = %v, want {2 6}", got)
	}
	if got := p.Sub(q); got != (geom.Point{X: 4, Y: 2}) {
		t.Errorf("Sub = %v, want {4 2}", got)
	}
	if got := p.Mul(2); got != (geom.Point{X: 6, Y: 8}) {
		t.Errorf("Mul = %v, want {6 8}", got)
	}
	if got := p.Abs(); got != 5 {
		t.Errorf("Abs = %v, want 5", got)
	}
	if got := p.AbsSq(); got != 25 {
		t.Errorf("AbsSq = %v, want 25", got)
	}
}

func TestPointRotate(t *testing.T) {
	tests := []struct {
		name    string
		p       geom.Point
		radians float64
		want    geom.Point
	}{
		{"quarter turn", geom.Point{X: 1, Y: 0}, math.Pi / 2, geom.Point{X: 0, Y: 1}},
		{"half turn", geom.Point{X: 1, Y: 0}, math.Pi, geom.Point{X: -1, Y: 0}},
		{"clockwise quarter", geom.Point{X: 0, Y: 1}, -math.Pi / 2, geom.Point{X: 1, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.Rotate(tt.radians)
			if !almostEqual(got.X, tt.want.X, 1e-12) || !almostEqual(got.Y, tt.want.Y, 1e-12) {
				t.Errorf("Rotate(%v) = %v, want %v", tt.radians, got, tt.want)
			}
		})
	}
}

func TestPolar(t *testing.T) {
	p := geom.Polar(2, math.Pi/2)
	if !almostEqual(p.X, 0, 1e-12) || !almostEqual(p.Y, 2, 1e-12) {
		t.Errorf("Polar(2, pi/2) = %v, want {0 2}", p)
	}
	if got := p.Arg(); !almostEqual(got, math.Pi/2, 1e-12) {
		t.Errorf("Arg = %v, want pi/2", got)
	}
}

func TestLineIntersect(t *testing.T) {
	l1 := geom.NewLine(geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 10})
	l2 := geom.NewLine(geom.Point{X: 0, Y: 10}, geom.Point{X: 10, Y: 0})
	got := l1.Intersect(l2)
	if !almostEqual(got.X, 5, 1e-9) || !almostEqual(got.Y, 5, 1e-9) {
		t.Errorf("Intersect = %v, want {5 5}", got)
	}
}

func TestLineIntersectParallel(t *testing.T) {
	l1 := geom.NewLine(geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0})
	l2 := geom.NewLine(geom.Point{X: 0, Y: 5}, geom.Point{X: 10, Y: 5})
	if got := l1.Intersect(l2); got != (geom.Point{}) {
		t.Errorf("parallel Intersect = %v, want {0 0}", got)
	}
}

func TestLineMoves(t *testing.T) {
	// Horizontal line through y=0, moved parallel through (3, 5), must
	// intersect a vertical line at y=5.
	l := geom.NewLine(geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0})
	l.MoveParallel(geom.Point{X: 3, Y: 5})
	v := geom.NewLine(geom.Point{X: 7, Y: -100}, geom.Point{X: 7, Y: 100})
	got := v.Intersect(l)
	if !almostEqual(got.Y, 5, 1e-9) || !almostEqual(got.X, 7, 1e-9) {
		t.Errorf("after MoveParallel intersect = %v, want {7 5}", got)
	}

	// Perpendicular of a horizontal line is vertical through the point.
	h := geom.NewLine(geom.Point{X: 0, Y: 0}, geom.Point{X: 10, Y: 0})
	h.MovePerpendicular(geom.Point{X: 4, Y: 0})
	base := geom.NewLine(geom.Point{X: 0, Y: 2}, geom.Point{X: 10, Y: 2})
	got = base.Intersect(h)
	if !almostEqual(got.X, 4, 1e-9) || !almostEqual(got.Y, 2, 1e-9) {
		t.Errorf("after MovePerpendicular intersect = %v, want {4 2}", got)
	}
}

func TestResolveSingleQuadrant(t *testing.T) {
	// A 90 degree clockwise quarter circle: the centre signs are found
	// by candidate search from unsigned I,J.
	arc := geom.ArcSpec{
		Start:     geom.Point{X: 0, Y: 0},
		End:       geom.Point{X: 1000, Y: 1000},
		Offset:    geom.Point{X: 1000, Y: 0},
		Clockwise: true,
	}.Resolve(1)

	if arc.Degenerate {
		t.Fatal("arc flagged degenerate")
	}
	if !almostEqual(arc.Centre.X, 1000, 1e-6) || !almostEqual(arc.Centre.Y, 0, 1e-6) {
		t.Errorf("centre = %v, want {1000 0}", arc.Centre)
	}
	if !almostEqual(arc.Radius, 1000, 1e-6) {
		t.Errorf("radius = %v, want 1000", arc.Radius)
	}
	if !almostEqual(arc.StartAngle, math.Pi, 1e-9) {
		t.Errorf("start angle = %v, want pi", arc.StartAngle)
	}
	if !almostEqual(arc.EndAngle, math.Pi/2, 1e-9) {
		t.Errorf("end angle = %v, want pi/2", arc.EndAngle)
	}
	if arc.Mismatch > 1e-6 {
		t.Errorf("mismatch = %v, want 0", arc.Mismatch)
	}
}

func TestResolveMultiQuadrantSnap(t *testing.T) {
	// In 360 mode a slightly off centre is snapped onto the chord's
	// perpendicular bisector so both endpoints lie on the arc.
	arc := geom.ArcSpec{
		Start:         geom.Point{X: 0, Y: 0},
		End:           geom.Point{X: 100, Y: 0},
		Offset:        geom.Point{X: 48, Y: 40},
		Clockwise:     false,
		MultiQuadrant: true,
	}.Resolve(0.001)

	dStart := arc.Centre.Sub(geom.Point{X: 0, Y: 0}).Abs()
	dEnd := arc.Centre.Sub(geom.Point{X: 100, Y: 0}).Abs()
	if !almostEqual(dStart, dEnd, 1e-9) {
		t.Errorf("snapped centre not equidistant: %v vs %v", dStart, dEnd)
	}
	if !almostEqual(arc.Centre.X, 50, 1e-9) || !almostEqual(arc.Centre.Y, 40, 1e-9) {
		t.Errorf("centre = %v, want {50 40}", arc.Centre)
	}
	if !almostEqual(arc.Mismatch, 2, 1e-9) {
		t.Errorf("mismatch = %v, want 2", arc.Mismatch)
	}
}

func TestResolveFullCircle(t *testing.T) {
	arc := geom.ArcSpec{
		Start:         geom.Point{X: 100, Y: 0},
		End:           geom.Point{X: 100, Y: 0},
		Offset:        geom.Point{X: -100, Y: 0},
		Clockwise:     false,
		MultiQuadrant: true,
	}.Resolve(0.001)

	if arc.Degenerate {
		t.Fatal("full circle flagged degenerate")
	}
	if got := arc.EndAngle - arc.StartAngle; !almostEqual(got, 2*math.Pi, 1e-9) {
		t.Errorf("sweep = %v, want 2*pi", got)
	}
}

func TestResolveDegenerate(t *testing.T) {
	tests := []struct {
		name string
		spec geom.ArcSpec
	}{
		{"zero offset", geom.ArcSpec{
			Start: geom.Point{X: 0, Y: 0}, End: geom.Point{X: 10, Y: 0},
			Offset: geom.Point{}, MultiQuadrant: true,
		}},
		{"radius below precision", geom.ArcSpec{
			Start: geom.Point{X: 0, Y: 0}, End: geom.Point{X: 0.5, Y: 0},
			Offset: geom.Point{X: 0.25, Y: 0}, MultiQuadrant: true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if arc := tt.spec.Resolve(1); !arc.Degenerate {
				t.Errorf("arc not flagged degenerate (radius %v)", arc.Radius)
			}
		})
	}
}

func TestArcStoppedPoint(t *testing.T) {
	arc := geom.ArcSpec{
		Start:         geom.Point{X: 0, Y: 0},
		End:           geom.Point{X: 200, Y: 0},
		Offset:        geom.Point{X: 100, Y: 0},
		Clockwise:     false,
		MultiQuadrant: true,
	}.Resolve(0.001)

	want := arc.Centre.Add(geom.Polar(arc.Radius, arc.EndAngle))
	if !almostEqual(arc.Stopped.X, want.X, 1e-9) || !almostEqual(arc.Stopped.Y, want.Y, 1e-9) {
		t.Errorf("stopped = %v, want %v", arc.Stopped, want)
	}
	if !almostEqual(arc.Stopped.X, 200, 1e-9) {
		t.Errorf("stopped x = %v, want 200", arc.Stopped.X)
	}
}
