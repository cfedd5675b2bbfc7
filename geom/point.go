// Package geom provides the planar primitives used by the rasterizer:
// points, infinite lines and circular-arc resolution.
package geom

import "math"

// Point is a point with real x,y coordinates.
type Point struct {
	X, Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Mul returns p scaled by fac.
func (p Point) Mul(fac float64) Point { return Point{p.X * fac, p.Y * fac} }

// Div returns p scaled by 1/den.
func (p Point) Div(den float64) Point { return Point{p.X / den, p.Y / den} }

// Abs returns the distance of p from the origin.
func (p Point) Abs() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y) }

// AbsSq returns the squared distance of p from the origin.
func (p Point) AbsSq() float64 { return p.X*p.X + p.Y*p.Y }

// Arg returns the angle of p in radians, in (-pi, pi].
func (p Point) Arg() float64 { return math.Atan2(p.Y, p.X) }

// Rotate returns p rotated about the origin by radians in the
// counter-clockwise direction.
func (p Point) Rotate(radians float64) Point {
	sin, cos := math.Sincos(radians)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.Y*cos + p.X*sin,
	}
}

// Polar returns the point at distance rho and angle theta from the origin.
func Polar(rho, theta float64) Point {
	sin, cos := math.Sincos(theta)
	return Point{X: rho * cos, Y: rho * sin}
}
