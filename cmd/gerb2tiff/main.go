// Command gerb2tiff converts Gerber RS-274X files to a monochrome
// compressed TIFF. Multiple input files are rendered as overlays onto
// a single bitmap.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cocosip/go-gerber-raster/gerber"
	"github.com/cocosip/go-gerber-raster/prn"
	"github.com/cocosip/go-gerber-raster/raster"
	"github.com/cocosip/go-gerber-raster/tiff"
)

const usage = `gerb2tiff - Gerber RS-274X file to raster graphics converter

Usage: gerb2tiff [OPTIONS] [file1] [file2]...

Output control:
  -a, --area           Show total dark area of TIFF in square centimeters.
  -q, --quiet          Suppress warnings and non critical messages.
  -t                   Test only. Process Gerber file without writing TIFF.
  -o, --output=FILE    Set name of output TIFF to FILE. If gerber-file is
                       specified then default is <file1>.tiff
                       This option is required when no gerber-file specified.
  -v                   Verbose mode, display information while processing.
                       Repeat for more verbosity. Disables --quiet
      --help           This help screen

Image options:
      --boarder-pixels=X   Add a boarder of X pixels around image. Default 0
  -b, --boarder-mm=X       Same as --boarder-pixels except X is in millimeters
  -p, --dpi=X              Number of dots per inch X. Default 2400
  -n, --negative           Negate image polarity
      --grow-pixels=X      Expand perimeter of all aperture features by X
                           pixels. Negative values shrink. Fractions allowed.
      --grow-mm=X          Same as --grow-pixels except X is in millimeters.
      --strip-rows=N       Specify N rows per strip in TIFF. Default 512
      --scale-y=FACTOR     Scale image in Y axis by FACTOR. Default 1
      --scale-x=FACTOR     Scale image in X axis by FACTOR. Default 1
      --workers=N          Rasterize N strips concurrently. Default 1
      --prn=FILE           Also write the raw RIP .prn format to FILE
      --uncompressed       Write the TIFF without compression

Where file1 file2... are gerber files rendered as overlays to a single
bitmap. Standard input is read if no gerber files specified and --output
is specified. Output bitmap is compressed monochrome TIFF.
`

// countFlag counts repeated occurrences of a boolean flag.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error { *c++; return nil }
func (c *countFlag) IsBoolFlag() bool { return true }

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "gerb2tiff: error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		outputName   string
		dpi          float64
		negative     bool
		boarderMM    float64
		boarderPx    float64
		growMM       float64
		growPx       float64
		scaleX       float64
		scaleY       float64
		stripRows    int
		workers      int
		showArea     bool
		testOnly     bool
		quiet        bool
		verbose      countFlag
		prnName      string
		uncompressed bool
	)

	flag.StringVar(&outputName, "o", "", "output file")
	flag.StringVar(&outputName, "output", "", "output file")
	flag.Float64Var(&dpi, "p", 2400, "dots per inch")
	flag.Float64Var(&dpi, "dpi", 2400, "dots per inch")
	flag.BoolVar(&negative, "n", false, "negate polarity")
	flag.BoolVar(&negative, "negative", false, "negate polarity")
	flag.Float64Var(&boarderMM, "b", 0, "boarder in mm")
	flag.Float64Var(&boarderMM, "boarder-mm", 0, "boarder in mm")
	flag.Float64Var(&boarderPx, "boarder-pixels", 0, "boarder in pixels")
	flag.Float64Var(&growMM, "grow-mm", 0, "grow in mm")
	flag.Float64Var(&growPx, "grow-pixels", 0, "grow in pixels")
	flag.Float64Var(&scaleX, "scale-x", 1, "x scale factor")
	flag.Float64Var(&scaleY, "scale-y", 1, "y scale factor")
	flag.IntVar(&stripRows, "strip-rows", 512, "rows per TIFF strip")
	flag.IntVar(&workers, "workers", 1, "concurrent strip workers")
	flag.BoolVar(&showArea, "a", false, "show dark area")
	flag.BoolVar(&showArea, "area", false, "show dark area")
	flag.BoolVar(&testOnly, "t", false, "test only")
	flag.BoolVar(&testOnly, "test", false, "test only")
	flag.BoolVar(&quiet, "q", false, "quiet")
	flag.BoolVar(&quiet, "quiet", false, "quiet")
	flag.Var(&verbose, "v", "verbose")
	flag.Var(&verbose, "verbose", "verbose")
	flag.StringVar(&prnName, "prn", "", "also write .prn RIP output")
	flag.BoolVar(&uncompressed, "uncompressed", false, "disable TIFF compression")
	flag.Usage = func() { fmt.Fprint(os.Stdout, usage) }
	flag.Parse()

	if verbose > 0 {
		quiet = false
	}
	if dpi < 1 {
		fatalf("DPI setting must be >= 1")
	}
	boarder := boarderPx
	if boarderMM != 0 {
		boarder = boarderMM * dpi / 25.4
	}
	if boarder < 0 {
		fatalf("boarder setting must be >= 0")
	}
	grow := growPx
	if growMM != 0 {
		grow = growMM * dpi / 25.4
	}

	start := time.Now()
	inputs := flag.Args()
	useStdin := len(inputs) == 0
	if useStdin && !testOnly && outputName == "" {
		fmt.Fprintln(os.Stderr, "no output or input file specified.\nTry 'gerb2tiff --help' for more information.")
		os.Exit(1)
	}

	opts := gerber.Options{DPI: dpi, Grow: grow, ScaleX: scaleX, ScaleY: scaleY}

	var gerbers []*gerber.Gerber
	if useStdin {
		g, err := gerber.Parse(os.Stdin, opts)
		printMessages("stdin", g, quiet)
		if err != nil {
			fatalf("(stdin) %v", err)
		}
		gerbers = append(gerbers, g)
	} else {
		for i, name := range inputs {
			if outputName == "" {
				outputName = name + ".tiff"
			}
			if !quiet {
				if i == 0 {
					fmt.Print("gerb2tiff: ")
				} else {
					fmt.Print("+ ")
				}
				fmt.Printf("%s ", name)
			}
			g, err := gerber.ParseFile(name, opts)
			printMessages(name, g, quiet)
			if err != nil {
				fmt.Println()
				fatalf("(%s) %v", name, err)
			}
			gerbers = append(gerbers, g)
		}
	}
	if !testOnly && !quiet {
		fmt.Printf("-> %s", outputName)
	}
	if !quiet {
		fmt.Println()
	}

	polys := gerber.Merge(gerbers)
	bounds, ok := raster.BoundsOf(polys)
	if !ok {
		fatalf("no image")
	}

	ropts := raster.Options{
		Border:       boarder,
		RowsPerStrip: stripRows,
		PolarityDark: gerbers[0].ImagePolarityDark != negative,
		Workers:      workers,
	}
	width, height := raster.ImageSize(bounds, ropts)
	if stripRows > height || stripRows <= 0 {
		ropts.RowsPerStrip = height
	}

	if verbose >= 2 {
		fmt.Printf("polygon count:               %d\n", len(polys))
		fmt.Printf("grow option:                 %.1f pixels , %.3f mm\n", grow, grow/dpi*25.4)
	}
	if verbose >= 1 {
		xo := int(boarder)
		fmt.Printf("Image data\n"+
			"  origin (mm):               %.3f x %.3f\n"+
			"  size (mm):                 %.3f x %.3f\n"+
			"  size (pixels):             %d x %d\n"+
			"  uncompressed size (MB):    %.1f\n"+
			"  dots per inch:             %d\n"+
			"  TIFF rows per strip        %d\n",
			float64(bounds.MinX-xo)/dpi*25.4, float64(bounds.MinY-xo)/dpi*25.4,
			float64(width)/dpi*25.4, float64(height)/dpi*25.4,
			width, height,
			float64((width+7)/8*height)/float64(1<<20),
			int(dpi), ropts.RowsPerStrip)
	}

	if testOnly {
		if verbose >= 1 {
			fmt.Printf("  time (sec):                %.2f\n", time.Since(start).Seconds())
		}
		return
	}

	out, err := os.Create(outputName)
	if err != nil {
		fatalf("error creating output file '%s'", outputName)
	}
	defer out.Close()

	compression := tiff.CompressionCCITTRLE
	if uncompressed {
		compression = tiff.CompressionNone
	}
	tw, err := tiff.NewWriter(out, tiff.Options{
		Width:        width,
		Height:       height,
		DPI:          dpi,
		RowsPerStrip: ropts.RowsPerStrip,
		Compression:  compression,
	})
	if err != nil {
		fatalf("%v", err)
	}

	sinks := []raster.StripSink{tw}
	if prnName != "" {
		pf, err := os.Create(prnName)
		if err != nil {
			fatalf("error creating output file '%s'", prnName)
		}
		defer pf.Close()
		pw, err := prn.NewWriter(pf, prn.Options{
			Width: width, Height: height, XDPI: int(dpi), YDPI: int(dpi),
		})
		if err != nil {
			fatalf("%v", err)
		}
		sinks = append(sinks, pw)
	}

	var darkPixels uint64
	rowsDone := 0
	sink := raster.SinkFunc(func(buf []byte, rows int) error {
		for _, s := range sinks {
			if err := s.WriteStrip(buf, rows); err != nil {
				return err
			}
		}
		if showArea {
			darkPixels += raster.CountDarkBits(buf)
		}
		rowsDone += rows
		if verbose >= 1 {
			fmt.Printf("Rendering %d%%  \r", 100*rowsDone/height)
		}
		return nil
	})

	if err := raster.Composite(polys, ropts, sink); err != nil {
		fatalf("%v", err)
	}
	if err := tw.Close(); err != nil {
		fatalf("%v", err)
	}
	if verbose >= 1 {
		fmt.Println()
	}

	if showArea {
		total := float64(width) * float64(height)
		cm2 := 2.54 * 2.54 / (dpi * dpi)
		fmt.Printf("  dark  area (sq.cm):        %0.1f\n", float64(darkPixels)*cm2)
		fmt.Printf("  clear area (sq.cm):        %0.1f\n", (total-float64(darkPixels))*cm2)
	}
	if verbose >= 1 {
		fmt.Printf("  time (sec):                %.2f\n", time.Since(start).Seconds())
	}
}

// printMessages prints a file's warnings, one per line, unless quiet.
func printMessages(name string, g *gerber.Gerber, quiet bool) {
	if g == nil || quiet {
		return
	}
	for i, msg := range g.Messages {
		if i == 0 {
			fmt.Println()
		}
		fmt.Printf("(%s) %s\n", name, msg)
	}
}
