package gerber_test

import (
	"strings"
	"testing"

	"github.com/cocosip/go-gerber-raster/gerber"
	"github.com/cocosip/go-gerber-raster/poly"
	"github.com/cocosip/go-gerber-raster/raster"
)

func parse(t *testing.T, src string, opts gerber.Options) *gerber.Gerber {
	t.Helper()
	g, err := gerber.Parse(strings.NewReader(src), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

// darkPixels composites the polygon list and counts set bits.
func darkPixels(t *testing.T, g *gerber.Gerber) uint64 {
	t.Helper()
	var n uint64
	err := raster.Composite(g.Polygons, raster.Options{PolarityDark: g.ImagePolarityDark},
		raster.SinkFunc(func(buf []byte, rows int) error {
			n += raster.CountDarkBits(buf)
			return nil
		}))
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	return n
}

func hasWarning(g *gerber.Gerber, substr string) bool {
	for _, m := range g.Messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

const header = "%FSLAX23Y23*%%MOIN*%"

func TestSingleFlashCircle(t *testing.T) {
	src := header + "%ADD10C,0.050*%D10*X1000Y1000D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	if len(g.Polygons) != 1 {
		t.Fatalf("polygon count = %d, want 1", len(g.Polygons))
	}
	p := g.Polygons[0]

	// The disk is centred at (1000, -1000) in image coordinates.
	cx := (p.PixelMinX + p.PixelMaxX) / 2
	cy := (p.PixelMinY + p.PixelMaxY) / 2
	if cx < 998 || cx > 1002 || cy < -1002 || cy > -998 {
		t.Errorf("disk centre = (%d,%d), want about (1000,-1000)", cx, cy)
	}
	if w := p.PixelMaxX - p.PixelMinX; w < 48 || w > 52 {
		t.Errorf("disk width = %d, want about 50", w)
	}

	// pi * 25^2 within the rasterization tolerance
	n := darkPixels(t, g)
	if n < 1923 || n > 2003 {
		t.Errorf("dark pixels = %d, want 1963 +- 40", n)
	}
}

func TestHorizontalTraceRectAperture(t *testing.T) {
	src := header + "%ADD10R,0.020X0.010*%D10*X0Y0D02*X5000Y0D01*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	// body parallelogram plus a flash at each end
	if len(g.Polygons) != 3 {
		t.Fatalf("polygon count = %d, want 3", len(g.Polygons))
	}

	n := darkPixels(t, g)
	if n < 49800 || n > 50700 {
		t.Errorf("dark pixels = %d, want about 50200", n)
	}
}

func TestApertureMacroWithVariable(t *testing.T) {
	src := header + "%AMTEST*1,1,$1,0,0*%%ADD20TEST,0.030*%D20*X0Y0D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	if len(g.Polygons) != 1 {
		t.Fatalf("polygon count = %d, want 1", len(g.Polygons))
	}
	p := g.Polygons[0]
	if w := p.PixelMaxX - p.PixelMinX; w < 28 || w > 32 {
		t.Errorf("disk width = %d, want about 30", w)
	}
	// first macro modifier == 1 forces the clear override
	if p.Polarity != poly.Clear {
		t.Errorf("polarity = %v, want clear", p.Polarity)
	}
}

func TestPolygonFillConcave(t *testing.T) {
	src := header +
		"G36*X0Y0D02*X1000Y0D01*X1000Y1000D01*X500Y500D01*X0Y1000D01*X0Y0D01*G37*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	if len(g.Polygons) != 1 {
		t.Fatalf("polygon count = %d, want 1", len(g.Polygons))
	}
	p := g.Polygons[0]
	fourFound := false
	for i := 0; i <= p.PixelMaxY-p.PixelMinY; i++ {
		xs := p.Row(i)
		if len(xs)%2 != 0 {
			t.Fatalf("row %d has odd intersection count %d", i, len(xs))
		}
		if len(xs) == 4 {
			fourFound = true
		}
	}
	if !fourFound {
		t.Error("no scan line split by the reflex vertex")
	}

	// square minus the notch triangle: 1e6 - 250000
	n := darkPixels(t, g)
	if n < 740000 || n > 760000 {
		t.Errorf("dark pixels = %d, want about 750000", n)
	}
}

func TestLayerPolarityRing(t *testing.T) {
	src := header + "%ADD10C,0.050*%%ADD11C,0.030*%%ADD12C,0.010*%" +
		"D10*X1000Y1000D03*" +
		"%LPC*%D11*D03*" +
		"%LPD*%D12*D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	if len(g.Polygons) != 3 {
		t.Fatalf("polygon count = %d, want 3", len(g.Polygons))
	}

	// ring plus dot: pi * (25^2 - 15^2 + 5^2)
	n := darkPixels(t, g)
	if n < 1270 || n > 1400 {
		t.Errorf("dark pixels = %d, want about 1335", n)
	}
}

func TestArcTraceAnnulus(t *testing.T) {
	src := header + "%ADD10C,0.050*%D10*G75*X0Y0D02*G03*X2000Y0I1000J0D01*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	n := darkPixels(t, g)
	// half annulus of mean radius 1000, width ~50, plus end caps
	if n < 150000 || n > 168000 {
		t.Errorf("dark pixels = %d, want about 158000", n)
	}
	if hasWarning(g, "Zero arc radius") {
		t.Error("unexpected zero-radius warning")
	}
}

func TestDegenerateArcBecomesLine(t *testing.T) {
	src := header + "%ADD10C,0.020*%D10*G75*X0Y0D02*G02*X1000Y0I0J0D01*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	if !hasWarning(g, "Zero arc radius") {
		t.Error("missing zero-radius warning")
	}
	// the replacement line still produces ink
	if n := darkPixels(t, g); n < 15000 {
		t.Errorf("dark pixels = %d, want a drawn line", n)
	}
}

func TestDefaultFormatWarning(t *testing.T) {
	g := parse(t, "X1000Y1000D03*", gerber.Options{DPI: 1000})
	if !hasWarning(g, "FS parameter missing") {
		t.Errorf("missing FS default warning, got %v", g.Messages)
	}
	if !hasWarning(g, "without units") {
		t.Errorf("missing units warning, got %v", g.Messages)
	}
	if len(g.Polygons) != 1 {
		t.Errorf("polygon count = %d, want the default aperture flash", len(g.Polygons))
	}
}

func TestUndefinedApertureFallsBack(t *testing.T) {
	src := header + "D99*X100Y100D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if !hasWarning(g, "Aperture D99 has not been defined") {
		t.Errorf("missing undefined-aperture warning, got %v", g.Messages)
	}
	if len(g.Polygons) != 1 {
		t.Errorf("polygon count = %d, want 1 default flash", len(g.Polygons))
	}
}

func TestM02RetainsApertures(t *testing.T) {
	src := header + "%ADD10C,0.050*%D10*X1000Y1000D03*M02*D10*X2000Y2000D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if hasWarning(g, "has not been defined") {
		t.Errorf("aperture lost across M02: %v", g.Messages)
	}
	if len(g.Polygons) != 2 {
		t.Errorf("polygon count = %d, want 2", len(g.Polygons))
	}
}

func TestIncrementalCoordinates(t *testing.T) {
	src := "%FSLIX23Y23*%%MOIN*%X1000Y1000D02*X1000D01*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})

	// Second X increments: trace runs from (1000,1000) to (2000,1000).
	b, ok := raster.BoundsOf(g.Polygons)
	if !ok {
		t.Fatal("no polygons")
	}
	if b.MaxX < 1995 || b.MaxX > 2005 {
		t.Errorf("max x = %d, want about 2000", b.MaxX)
	}
	if b.MinX < 995 || b.MinX > 1005 {
		t.Errorf("min x = %d, want about 1000", b.MinX)
	}
}

func TestSurplusDigitsWarning(t *testing.T) {
	src := header + "X12345678Y0D02*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if !hasWarning(g, "surplus digits") {
		t.Errorf("missing surplus digits warning, got %v", g.Messages)
	}
}

func TestNegativeImagePolarity(t *testing.T) {
	src := "%IPNEG*%" + header + "%ADD10C,0.050*%D10*X1000Y1000D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if g.ImagePolarityDark {
		t.Error("ImagePolarityDark = true after %IPNEG*%")
	}
}

func TestImageNames(t *testing.T) {
	src := "%INmyimage*%%LNtop_copper*%" + header + "%ADD10C,0.050*%D10*X0Y0D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if g.ImageName != "myimage" {
		t.Errorf("ImageName = %q, want myimage", g.ImageName)
	}
	if g.LayerName != "top_copper" {
		t.Errorf("LayerName = %q, want top_copper", g.LayerName)
	}
}

func TestStepRepeatWarns(t *testing.T) {
	src := "%SRX2Y3I1.5J2.5*%" + header + "%ADD10C,0.050*%D10*X0Y0D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if !hasWarning(g, "step and repeat is not supported") {
		t.Errorf("missing SR warning, got %v", g.Messages)
	}
}

func TestWarningSuppression(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < 35; i++ {
		sb.WriteString("D90*")
	}
	sb.WriteString("M02*")
	g := parse(t, sb.String(), gerber.Options{DPI: 1000})

	if len(g.Messages) != 30 {
		t.Fatalf("message count = %d, want 30 (29 warnings + notice)", len(g.Messages))
	}
	if !strings.Contains(g.Messages[29], "Too many warnings") {
		t.Errorf("last message = %q, want suppression notice", g.Messages[29])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown macro", header + "%ADD10NOPE*%", "undefined"},
		{"bad character", "Q123*", "unexpected character"},
		{"division by zero", header + "%AMBAD*1,1,1/0,0,0*%%ADD10BAD*%", "division by zero"},
		{"unbound variable", header + "%AMV*1,1,$2,0,0*%%ADD10V,0.030*%", "variable $2 has not been assigned"},
		{"polygon sides", header + "%ADD10P,0.050X30*%", "out of range"},
		{"bad FS", "%FSQAX23Y23*%", "invalid FS parameter"},
		{"bad MO", "%MOXX*%", "invalid MO parameter"},
		{"arc with rect aperture", header + "%ADD10R,0.020X0.010*%D10*X0Y0D02*G75*G02*X100Y100I100J0D01*", "not supported for drawing traces"},
		{"scaled linear mode", header + "%ADD10C,0.020*%D10*X0Y0D02*G10*X100Y0D01*", "drawing mode unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gerber.Parse(strings.NewReader(tt.src), gerber.Options{DPI: 1000})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestErrorsCarryLineNumber(t *testing.T) {
	src := header + "\n\n%ADD10NOPE*%"
	_, err := gerber.Parse(strings.NewReader(src), gerber.Options{DPI: 1000})
	if err == nil || !strings.Contains(err.Error(), "stopped at line 3") {
		t.Errorf("error = %v, want line 3 tag", err)
	}
}

func TestG04CommentSkipped(t *testing.T) {
	src := header + "G04 this is a comment with %weird% tokens*%ADD10C,0.050*%D10*X0Y0D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	if len(g.Polygons) != 1 {
		t.Errorf("polygon count = %d, want 1", len(g.Polygons))
	}
}

func TestMergeRenumbers(t *testing.T) {
	a := parse(t, header+"%ADD10C,0.050*%D10*X0Y0D03*M02*", gerber.Options{DPI: 1000})
	b := parse(t, header+"%ADD10C,0.030*%D10*X0Y0D03*M02*", gerber.Options{DPI: 1000})

	merged := gerber.Merge([]*gerber.Gerber{a, b})
	if len(merged) != 2 {
		t.Fatalf("merged count = %d, want 2", len(merged))
	}
	seen := map[int]bool{}
	for _, p := range merged {
		if seen[p.Number] {
			t.Fatalf("duplicate polygon number %d after merge", p.Number)
		}
		seen[p.Number] = true
	}
}

func TestCompositingIsRepeatable(t *testing.T) {
	src := header + "%ADD10C,0.050*%D10*X1000Y1000D03*X1500Y1200D03*M02*"
	g := parse(t, src, gerber.Options{DPI: 1000})
	a := darkPixels(t, g)
	b := darkPixels(t, g)
	if a != b {
		t.Errorf("two composites differ: %d vs %d", a, b)
	}
}
