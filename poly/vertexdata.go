package poly

import (
	"errors"
	"math"
	"slices"
	"sort"

	"github.com/cocosip/go-gerber-raster/geom"
)

// ErrOddIntersections reports a scan line with an odd number of edge
// intersections, which indicates an internal error in polygon
// construction.
var ErrOddIntersections = errors.New("polygon scan line data not even")

// roundDot converts a real coordinate to the nearest pixel, rounding
// halves away from zero; for negative values exactly halfway between
// two pixels it differs from int(floor(0.5 + x)) (-1.5 gives -2). It
// is kept identical to the original plotter's rounding so film output
// does not shift by a pixel.
func roundDot(x float64) int {
	if x < 0 {
		return int(x - 0.5)
	}
	return int(x + 0.5)
}

// VertexData is a vertex sequence with cached bounds and scan-line fill
// tables. It is mutated only while an aperture or trace is being built;
// after Initialise it is read-only and may be shared by any number of
// Polygons.
type VertexData struct {
	Vertices []geom.Point

	MinX, MinY, MaxX, MaxY float64

	pixelWidth  int
	pixelHeight int

	lastVertex geom.Point

	// Scan-line fill products: xs holds the x intersections of every
	// row back to back; rowStart[i] is the offset of row i, with a
	// final sentinel entry so Row is a plain subslice.
	xs       []int
	rowStart []int
}

// Empty reports whether no vertices have been added.
func (v *VertexData) Empty() bool { return len(v.Vertices) == 0 }

// Add appends p to the vertex list. Points closer than half a pixel to
// the previous vertex are dropped to keep slivers out of the edge
// table.
func (v *VertexData) Add(p geom.Point) {
	if len(v.Vertices) == 0 || v.lastVertex.Sub(p).AbsSq() > 0.25 {
		v.Vertices = append(v.Vertices, p)
		v.lastVertex = p
	}
}

// AddXY appends the point (x, y).
func (v *VertexData) AddXY(x, y float64) {
	v.Add(geom.Point{X: x, Y: y})
}

// AddArc appends vertices approximating an arc of the given radius
// centred at (x0, y0), swept from startAngle to endAngle. The chord
// deviation is held under 0.01 pixels for small arcs, relaxing
// proportionally for radii above 150 pixels.
func (v *VertexData) AddArc(startAngle, endAngle, radius, x0, y0 float64, clockwise bool) {
	deviation := 0.01
	if radius < 0.5 {
		radius = 0.5
	}
	if radius > 150 {
		deviation *= radius / 150
	}
	if deviation < 0.01 {
		deviation = 0.01
	}
	step := 2 * math.Acos(1-deviation/radius)

	if startAngle < 0 {
		startAngle += 2 * math.Pi
	}
	if endAngle < 0 {
		endAngle += 2 * math.Pi
	}

	theta := startAngle
	arc := endAngle - startAngle
	if arc < 0 {
		arc += 2 * math.Pi
	}
	if clockwise {
		arc = 2*math.Pi - arc
	}

	n := int(math.Ceil(arc / step))
	if n < 2 {
		return
	}
	step = arc / float64(n-1)
	if clockwise {
		step = -step
	}

	for i := 0; i < n; i++ {
		v.AddXY(radius*math.Cos(theta)+x0, radius*math.Sin(theta)+y0)
		theta += step
	}
}

// AddRegularPolygon appends the vertices of a regular polygon with
// numSides sides, vertex radius vertexRadius, first vertex at
// startAngle, centred at (x0, y0).
func (v *VertexData) AddRegularPolygon(vertexRadius, startAngle float64, numSides int, x0, y0 float64) {
	if numSides < 3 {
		return
	}
	step := 2 * math.Pi / float64(numSides)
	theta := startAngle
	for i := 0; i < numSides; i++ {
		v.AddXY(vertexRadius*math.Cos(theta)+x0, vertexRadius*math.Sin(theta)+y0)
		theta += step
	}
}

// AddRectangle appends an axis-aligned rectangle of the given size
// centred at (x0, y0).
func (v *VertexData) AddRectangle(xSize, ySize, x0, y0 float64) {
	x1 := x0 - xSize/2
	y1 := y0 - ySize/2
	x2 := x1 + xSize
	y2 := y1 + ySize
	v.AddXY(x1, y1)
	v.AddXY(x2, y1)
	v.AddXY(x2, y2)
	v.AddXY(x1, y2)
}

// Scale multiplies all x coordinates by scaleX and all y coordinates by
// scaleY.
func (v *VertexData) Scale(scaleX, scaleY float64) {
	for i := range v.Vertices {
		v.Vertices[i].X *= scaleX
		v.Vertices[i].Y *= scaleY
	}
}

// Rotate rotates all vertices about the origin counter-clockwise.
func (v *VertexData) Rotate(radians float64) {
	if radians == 0 {
		return
	}
	for i := range v.Vertices {
		v.Vertices[i] = v.Vertices[i].Rotate(radians)
	}
}

// Shift translates all vertices.
func (v *VertexData) Shift(xShift, yShift float64) {
	for i := range v.Vertices {
		v.Vertices[i].X += xShift
		v.Vertices[i].Y += yShift
	}
}

// edge is a non-horizontal polygon edge prepared for the scan-line
// sweep. The x intersection at height y is (y*deltaX + c) / deltaY.
type edge struct {
	deltaX, deltaY float64
	c              float64
	ymin, ymax     float64

	// includeBottom keeps the edge active on its very bottom scan line.
	// Set for edges meeting in a local minimum vertex, so the vertex row
	// is not dropped from the fill.
	includeBottom bool
}

func newEdge(p1, p2 geom.Point) edge {
	return edge{
		ymin:   math.Min(p1.Y, p2.Y),
		ymax:   math.Max(p1.Y, p2.Y),
		deltaX: p2.X - p1.X,
		deltaY: p2.Y - p1.Y,
		c:      p1.X*(p2.Y-p1.Y) - p1.Y*(p2.X-p1.X),
	}
}

func (e *edge) x(y float64) float64 {
	return (y*e.deltaX + e.c) / e.deltaY
}

// Initialise computes the bounds and builds the scan-line fill table.
// Must be called once, after all vertex mutation is done. The table has
// one row per scan line from round(MinY)+0.5 stepping by one pixel,
// pixelHeight+1 rows in total.
func (v *VertexData) Initialise() error {
	if len(v.Vertices) == 0 {
		return nil
	}

	v.MinX, v.MinY = math.MaxFloat64, math.MaxFloat64
	v.MaxX, v.MaxY = -math.MaxFloat64, -math.MaxFloat64
	for _, p := range v.Vertices {
		v.MinX = math.Min(v.MinX, p.X)
		v.MinY = math.Min(v.MinY, p.Y)
		v.MaxX = math.Max(v.MaxX, p.X)
		v.MaxY = math.Max(v.MaxY, p.Y)
	}
	v.pixelHeight = roundDot(v.MaxY - v.MinY)
	v.pixelWidth = roundDot(v.MaxX - v.MinX)

	// A polygon under one pixel high is treated as a single horizontal
	// line from MinX to MaxX.
	if v.pixelHeight == 0 {
		v.xs = []int{roundDot(v.MinX), roundDot(v.MaxX)}
		v.rowStart = []int{0, 2}
		return nil
	}

	// Build the edge table in boundary-path order, skipping horizontal
	// edges; they are implied by the vertical edges around them.
	edges := make([]edge, 0, len(v.Vertices))
	p1 := v.Vertices[len(v.Vertices)-1]
	for _, p2 := range v.Vertices {
		if p1.Y != p2.Y {
			edges = append(edges, newEdge(p1, p2))
		}
		p1 = p2
	}
	if len(edges) == 0 {
		return nil
	}

	// Flag edges that meet in a local-minimum vertex: an up-pointing
	// edge whose predecessor points down. Both stay active on their
	// bottom line so the vertex row is filled.
	prev := len(edges) - 1
	for i := range edges {
		if edges[i].deltaY < 0 && edges[prev].deltaY > 0 {
			edges[prev].includeBottom = true
			edges[i].includeBottom = true
		}
		prev = i
	}

	slices.SortStableFunc(edges, func(a, b edge) int {
		switch {
		case a.ymin < b.ymin:
			return -1
		case a.ymin > b.ymin:
			return 1
		}
		return 0
	})

	rows := v.pixelHeight + 1
	v.rowStart = make([]int, 0, rows+1)
	var active []*edge
	next := 0

	y := float64(roundDot(v.MinY)) + 0.5
	for line := 0; line < rows; line, y = line+1, y+1 {
		for next < len(edges) && y >= edges[next].ymin {
			active = append(active, &edges[next])
			next++
		}

		// Drop edges the sweep has passed. An edge ending exactly on this
		// line stays only when flagged includeBottom, avoiding double
		// counting against the joining edge below it.
		kept := active[:0]
		for _, e := range active {
			if y > e.ymax || (y == e.ymax && !e.includeBottom) {
				continue
			}
			kept = append(kept, e)
		}
		active = kept

		v.rowStart = append(v.rowStart, len(v.xs))
		if len(active)&1 != 0 {
			return ErrOddIntersections
		}
		for _, e := range active {
			v.xs = append(v.xs, roundDot(e.x(y)))
		}
		sort.Ints(v.xs[v.rowStart[len(v.rowStart)-1]:])
	}
	v.rowStart = append(v.rowStart, len(v.xs))
	return nil
}

// Rows returns the number of scan lines in the fill table.
func (v *VertexData) Rows() int {
	if len(v.rowStart) == 0 {
		return 0
	}
	return len(v.rowStart) - 1
}

// Row returns the sorted x intersections of row i. Out-of-range rows
// yield an empty slice.
func (v *VertexData) Row(i int) []int {
	if i < 0 || i >= v.Rows() {
		return nil
	}
	return v.xs[v.rowStart[i]:v.rowStart[i+1]]
}
