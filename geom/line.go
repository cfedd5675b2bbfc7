package geom

import "math"

// Line is an infinite line in canonical form Ax + By + C = 0.
// The constructor normalises the dominant coefficient to +-1 so the
// intersection arithmetic stays well conditioned for near-vertical and
// near-horizontal lines.
type Line struct {
	a, b, c float64
}

// NewLine returns the line through p1 and p2.
func NewLine(p1, p2 Point) Line {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	if math.Abs(dy) > math.Abs(dx) {
		b := dx / dy
		return Line{a: -1, b: b, c: p1.X - p1.Y*b}
	}
	a := -dy / dx
	return Line{a: a, b: 1, c: -p1.Y - p1.X*a}
}

// MoveParallel translates the line so it passes through p, keeping its slope.
func (l *Line) MoveParallel(p Point) {
	l.c = -l.a*p.X - l.b*p.Y
}

// MovePerpendicular rotates the line 90 degrees and translates it to
// pass through p.
func (l *Line) MovePerpendicular(p Point) {
	l.c = l.b*p.X - l.a*p.Y
	l.a, l.b = -l.b, l.a
}

// Intersect returns the point where l and test cross.
// If the lines are parallel the zero point is returned.
func (l Line) Intersect(test Line) Point {
	var p Point
	if math.Abs(test.a) > math.Abs(test.b) {
		b := l.b - (l.a/test.a)*test.b
		c := l.c - (l.a/test.a)*test.c
		if b != 0 {
			p.Y = -c / b
			p.X = -(test.c + p.Y*test.b) / test.a
		}
		return p
	}
	a := l.a - (l.b/test.b)*test.a
	c := l.c - (l.b/test.b)*test.c
	if a != 0 {
		p.X = -c / a
		p.Y = -(test.c + p.X*test.a) / test.b
	}
	return p
}
