package gerber

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cocosip/go-gerber-raster/aperture"
	"github.com/cocosip/go-gerber-raster/expr"
)

// parameterBlock consumes a %...% extended parameter block. The block
// may hold several '*'-terminated statements; a leading AM statement
// turns the remaining statements into macro primitive definitions.
func (g *Gerber) parameterBlock(br *bufio.Reader) error {
	var raw []byte
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			return errors.New("unterminated parameter block")
		}
		if err != nil {
			return err
		}
		if c == '%' {
			break
		}
		if c == '\n' {
			g.line++
		}
		raw = append(raw, c)
	}

	macro := ""
	for _, stmt := range strings.Split(string(raw), "*") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if macro != "" {
			if err := g.macroPrimitive(macro, stmt); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(stmt, "AM") {
			macro = strings.TrimSpace(stmt[2:])
			if macro == "" {
				return errors.New("missing macro name in AM parameter")
			}
			continue
		}
		if err := g.parameter(stmt); err != nil {
			return err
		}
	}
	return nil
}

// macroPrimitive parses one primitive statement of a %AM*% block and
// appends it to the named macro.
func (g *Gerber) macroPrimitive(name, stmt string) error {
	if strings.HasPrefix(stmt, "$") {
		// $n=... assignments inside macros are a later extension
		g.warnf("ignoring macro variable assignment '%s'", stmt)
		return nil
	}

	fields := strings.Split(stmt, ",")
	code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return fmt.Errorf("bad primitive code %q in macro '%s'", fields[0], name)
	}
	if code == 0 {
		// primitive 0 is a comment
		return nil
	}

	params := make([]expr.Node, 0, len(fields)-1)
	for _, f := range fields[1:] {
		node, err := expr.Parse(strings.TrimSpace(f))
		if err != nil {
			return fmt.Errorf("%w in macro '%s'", err, name)
		}
		params = append(params, node)
	}
	g.lib.DefineMacroPrimitive(name, aperture.Primitive(code), params)
	return nil
}

// parameter dispatches one non-macro parameter statement.
func (g *Gerber) parameter(stmt string) error {
	if len(stmt) < 2 {
		g.warnf("ignoring unknown parameter '%s'", stmt)
		return nil
	}
	body := stmt[2:]

	switch stmt[:2] {
	case "FS":
		return g.paramFS(body)
	case "MO":
		switch body {
		case "IN":
			g.units = unitInch
		case "MM":
			g.units = unitMillimeter
		default:
			return fmt.Errorf("invalid MO parameter '%s'", stmt)
		}
	case "AD":
		return g.paramAD(body)
	case "IP":
		switch body {
		case "POS":
			g.ImagePolarityDark = true
		case "NEG":
			g.ImagePolarityDark = false
		default:
			return fmt.Errorf("invalid IP parameter '%s'", stmt)
		}
	case "LP":
		switch body {
		case "D":
			g.layerPolarityClear = false
		case "C":
			g.layerPolarityClear = true
		default:
			return fmt.Errorf("invalid LP parameter '%s'", stmt)
		}
	case "IO":
		a, b, err := axisPair(body, 0, 0)
		if err != nil {
			return fmt.Errorf("invalid IO parameter '%s'", stmt)
		}
		g.imageOffset[0] = a * g.dotsPerUnit()
		g.imageOffset[1] = b * g.dotsPerUnit()
	case "IR":
		deg, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return fmt.Errorf("invalid IR parameter '%s'", stmt)
		}
		g.imageRotate = deg * math.Pi / 180
	case "SF":
		a, b, err := axisPair(body, 1, 1)
		if err != nil {
			return fmt.Errorf("invalid SF parameter '%s'", stmt)
		}
		g.scaleFactor[0] = g.opts.ScaleX * a
		g.scaleFactor[1] = g.opts.ScaleY * b
	case "MI":
		a, b, err := axisPair(body, 0, 0)
		if err != nil {
			return fmt.Errorf("invalid MI parameter '%s'", stmt)
		}
		g.mirrorA = a != 0
		g.mirrorB = b != 0
	case "AS":
		g.axisSwapped = body == "AYBX"
	case "SR":
		return g.paramSR(body)
	case "IN":
		g.ImageName = body
	case "LN":
		g.LayerName = body
	default:
		g.warnf("ignoring unknown parameter '%s'", stmt)
	}
	return nil
}

// paramFS parses the coordinate format: zero-omission and notation
// flags followed by per-axis integer/decimal digit counts, e.g.
// FSLAX23Y23.
func (g *Gerber) paramFS(body string) error {
	omit := false
	absolute := true

	i := 0
flags:
	for ; i < len(body); i++ {
		switch body[i] {
		case 'L':
			omit = true
		case 'T':
			omit = false
		case 'A':
			absolute = true
		case 'I':
			absolute = false
		case 'D':
			// explicit decimal points; digits still follow
		case 'X':
			break flags
		default:
			return fmt.Errorf("invalid FS parameter 'FS%s'", body)
		}
	}

	rest := body[i:]
	if len(rest) != 6 || rest[0] != 'X' || rest[3] != 'Y' {
		return fmt.Errorf("invalid FS parameter 'FS%s'", body)
	}
	for _, c := range rest[1:3] + rest[4:6] {
		if c < '0' || c > '9' {
			return fmt.Errorf("invalid FS parameter 'FS%s'", body)
		}
	}

	g.coordInts[0] = int(rest[1] - '0')
	g.coordDecimals[0] = int(rest[2] - '0')
	g.coordInts[1] = int(rest[4] - '0')
	g.coordDecimals[1] = int(rest[5] - '0')
	g.omitLeading = omit
	g.absolute = absolute
	return nil
}

// paramAD parses an aperture definition D<code><macro>[,<modifiers>]
// and instantiates the macro at the current units and scale.
func (g *Gerber) paramAD(body string) error {
	if len(body) == 0 || body[0] != 'D' {
		return fmt.Errorf("invalid AD parameter 'AD%s'", body)
	}
	i := 1
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i == 1 {
		return fmt.Errorf("invalid AD parameter 'AD%s'", body)
	}
	dcode, err := strconv.Atoi(body[1:i])
	if err != nil {
		return fmt.Errorf("invalid AD parameter 'AD%s'", body)
	}

	name := body[i:]
	var vars []float64
	if comma := strings.IndexByte(name, ','); comma >= 0 {
		mods := name[comma+1:]
		name = name[:comma]
		for _, field := range strings.FieldsFunc(mods, func(r rune) bool { return r == 'X' || r == 'x' }) {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return fmt.Errorf("bad modifier %q in aperture D%d", field, dcode)
			}
			vars = append(vars, v)
		}
	}
	if name == "" {
		return fmt.Errorf("missing macro name in aperture D%d", dcode)
	}

	vdata, err := g.lib.Instantiate(dcode, name, vars, g.dotsPerUnit(), g.opts.Grow,
		g.scaleFactor[0], g.scaleFactor[1], g.line)
	if err != nil {
		return err
	}
	g.VertexData = append(g.VertexData, vdata...)
	return nil
}

// paramSR parses step-and-repeat. Rendering of repeats is not
// implemented; a repeat above 1x1 warns and is otherwise ignored.
func (g *Gerber) paramSR(body string) error {
	g.repeat.X, g.repeat.Y = 1, 1
	g.repeat.I, g.repeat.J = 0, 0
	rest := body
	for len(rest) > 0 {
		axis := rest[0]
		rest = rest[1:]
		end := 0
		for end < len(rest) && (rest[end] == '+' || rest[end] == '-' || rest[end] == '.' || rest[end] >= '0' && rest[end] <= '9') {
			end++
		}
		v, err := strconv.ParseFloat(rest[:end], 64)
		if err != nil {
			return fmt.Errorf("invalid SR parameter 'SR%s'", body)
		}
		switch axis {
		case 'X':
			g.repeat.X = int(v)
		case 'Y':
			g.repeat.Y = int(v)
		case 'I':
			g.repeat.I = v
		case 'J':
			g.repeat.J = v
		default:
			return fmt.Errorf("invalid SR parameter 'SR%s'", body)
		}
		rest = rest[end:]
	}
	if g.repeat.X > 1 || g.repeat.Y > 1 {
		g.warnf("step and repeat is not supported")
	}
	return nil
}

// axisPair parses "A<value>B<value>" bodies such as IOA5B-2 or
// SFA1.0B1.0. Either axis may be omitted and takes its default.
func axisPair(body string, adef, bdef float64) (av, bv float64, err error) {
	av, bv = adef, bdef
	rest := body
	seen := false
	for len(rest) > 0 {
		axis := rest[0]
		rest = rest[1:]
		end := 0
		for end < len(rest) && (rest[end] == '+' || rest[end] == '-' || rest[end] == '.' || rest[end] >= '0' && rest[end] <= '9') {
			end++
		}
		v, perr := strconv.ParseFloat(rest[:end], 64)
		if perr != nil {
			return 0, 0, perr
		}
		switch axis {
		case 'A':
			av = v
		case 'B':
			bv = v
		default:
			return 0, 0, fmt.Errorf("unexpected axis %c", axis)
		}
		seen = true
		rest = rest[end:]
	}
	if !seen {
		return 0, 0, errors.New("empty axis pair")
	}
	return av, bv, nil
}
