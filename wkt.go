package geopackage

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatWKT renders g as well-known text, e.g. "POINT Z (1 2 3)".
func FormatWKT(g Geometry) (string, error) {
	if g == nil {
		return "", ErrNilGeometry
	}
	var sb strings.Builder
	if err := writeWKT(&sb, g, true); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeWKT(sb *strings.Builder, g Geometry, tagged bool) error {
	if tagged {
		sb.WriteString(g.Type().String())
		switch g.Layout() {
		case XYZ:
			sb.WriteString(" Z")
		case XYM:
			sb.WriteString(" M")
		case XYZM:
			sb.WriteString(" ZM")
		}
		sb.WriteByte(' ')
	}
	if g.IsEmpty() {
		sb.WriteString("EMPTY")
		return nil
	}

	l := g.Layout()
	switch v := g.(type) {
	case *Point:
		sb.WriteByte('(')
		writeWKTCoord(sb, v.Coord, l)
		sb.WriteByte(')')
	case *LineString:
		writeWKTCoords(sb, v.Points, l)
	case *CircularString:
		writeWKTCoords(sb, v.Points, l)
	case *Polygon:
		writeWKTRings(sb, v.Rings, l)
	case *Triangle:
		writeWKTRings(sb, v.Rings, l)
	case *MultiPoint:
		sb.WriteByte('(')
		for i, p := range v.Points {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeWKT(sb, p, false); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *MultiLineString:
		return writeWKTMembers(sb, len(v.LineStrings), func(i int) Geometry { return v.LineStrings[i] }, false)
	case *MultiPolygon:
		return writeWKTMembers(sb, len(v.Polygons), func(i int) Geometry { return v.Polygons[i] }, false)
	case *PolyhedralSurface:
		return writeWKTMembers(sb, len(v.Polygons), func(i int) Geometry { return v.Polygons[i] }, false)
	case *TIN:
		return writeWKTMembers(sb, len(v.Triangles), func(i int) Geometry { return v.Triangles[i] }, false)
	case *CompoundCurve:
		sb.WriteByte('(')
		for i, c := range v.Curves {
			if i > 0 {
				sb.WriteString(", ")
			}
			// Line segments are written untagged, arcs keep their tag.
			_, isArc := c.(*CircularString)
			if err := writeWKT(sb, c, isArc); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *GeometryCollection:
		return writeWKTMembers(sb, len(v.Geometries), func(i int) Geometry { return v.Geometries[i] }, true)
	default:
		return &UnsupportedTypeError{Code: uint32(g.Type())}
	}
	return nil
}

func writeWKTMembers(sb *strings.Builder, n int, member func(int) Geometry, tagged bool) error {
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := writeWKT(sb, member(i), tagged); err != nil {
			return err
		}
	}
	sb.WriteByte(')')
	return nil
}

func writeWKTRings(sb *strings.Builder, rings [][]Coord, l Layout) {
	sb.WriteByte('(')
	for i, r := range rings {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeWKTCoords(sb, r, l)
	}
	sb.WriteByte(')')
}

func writeWKTCoords(sb *strings.Builder, cs []Coord, l Layout) {
	sb.WriteByte('(')
	for i, c := range cs {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeWKTCoord(sb, c, l)
	}
	sb.WriteByte(')')
}

func writeWKTCoord(sb *strings.Builder, c Coord, l Layout) {
	sb.WriteString(formatFloat(c.X))
	sb.WriteByte(' ')
	sb.WriteString(formatFloat(c.Y))
	if l.HasZ() {
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(c.Z))
	}
	if l.HasM() {
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(c.M))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseWKT parses well-known text into a Geometry. A missing Z/M/ZM tag is
// inferred from the number of ordinates in the first coordinate.
func ParseWKT(text string) (Geometry, error) {
	p := &wktParser{lex: wktLexer{src: text}}
	p.next()
	g, err := p.parseGeometry(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after geometry", p.tok.text)
	}
	return g, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokOpen
	tokClose
	tokComma
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type wktLexer struct {
	src string
	pos int
}

func (l *wktLexer) next() token {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokOpen, text: "(", pos: start}
	case c == ')':
		l.pos++
		return token{kind: tokClose, text: ")", pos: start}
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}
	case isLetter(c):
		for l.pos < len(l.src) && isLetter(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokWord, text: strings.ToUpper(l.src[start:l.pos]), pos: start}
	case isNumberStart(c):
		for l.pos < len(l.src) && isNumberPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}
	}
	l.pos++
	return token{kind: tokInvalid, text: string(c), pos: start}
}

func isSpace(c byte) bool       { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isLetter(c byte) bool      { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }
func isNumberStart(c byte) bool { return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' }
func isNumberPart(c byte) bool  { return isNumberStart(c) || c == 'e' || c == 'E' }

type wktParser struct {
	lex wktLexer
	tok token

	// layout of the geometry being parsed, fixed either by a tag or by the
	// first coordinate read.
	layout Layout
	fixed  bool
}

func (p *wktParser) next() {
	p.tok = p.lex.next()
}

func (p *wktParser) errorf(format string, args ...interface{}) error {
	return decodeErrorf("wkt at offset %d: %s", p.tok.pos, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p *wktParser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return p.errorf("expected %s, got %q", what, p.tok.text)
	}
	p.next()
	return nil
}

// parseTag reads the optional Z/M/ZM tag after a type name.
func (p *wktParser) parseTag(depth int) {
	if p.tok.kind != tokWord {
		return
	}
	var l Layout
	switch p.tok.text {
	case "Z":
		l = XYZ
	case "M":
		l = XYM
	case "ZM":
		l = XYZM
	default:
		return
	}
	p.next()
	if depth == 0 || !p.fixed {
		p.layout, p.fixed = l, true
	}
}

// empty consumes EMPTY and reports whether it was present.
func (p *wktParser) empty() bool {
	if p.tok.kind == tokWord && p.tok.text == "EMPTY" {
		p.next()
		return true
	}
	return false
}

func (p *wktParser) parseGeometry(depth int) (Geometry, error) {
	if depth > maxWKBDepth {
		return nil, p.errorf("geometry nesting deeper than %d", maxWKBDepth)
	}
	if p.tok.kind != tokWord {
		return nil, p.errorf("expected geometry type, got %q", p.tok.text)
	}
	t, ok := ParseGeometryType(p.tok.text)
	if !ok || !t.Supported() {
		return nil, p.errorf("unsupported geometry type %q", p.tok.text)
	}
	p.next()
	p.parseTag(depth)
	return p.parseBody(t, depth)
}

// parseBody parses the text after the type name and tag.
func (p *wktParser) parseBody(t GeometryType, depth int) (Geometry, error) {
	if p.empty() {
		switch t {
		case GeometryTypePoint:
			return EmptyPoint(p.layout), nil
		case GeometryTypeLineString:
			return &LineString{Dims: p.layout}, nil
		case GeometryTypeCircularString:
			return &CircularString{Dims: p.layout}, nil
		case GeometryTypeCompoundCurve:
			return &CompoundCurve{Dims: p.layout}, nil
		case GeometryTypePolygon:
			return &Polygon{Dims: p.layout}, nil
		case GeometryTypeTriangle:
			return &Triangle{Dims: p.layout}, nil
		case GeometryTypeMultiPoint:
			return &MultiPoint{Dims: p.layout}, nil
		case GeometryTypeMultiLineString:
			return &MultiLineString{Dims: p.layout}, nil
		case GeometryTypeMultiPolygon:
			return &MultiPolygon{Dims: p.layout}, nil
		case GeometryTypePolyhedralSurface:
			return &PolyhedralSurface{Dims: p.layout}, nil
		case GeometryTypeTIN:
			return &TIN{Dims: p.layout}, nil
		default:
			return &GeometryCollection{Dims: p.layout}, nil
		}
	}

	switch t {
	case GeometryTypePoint:
		if err := p.expect(tokOpen, "'('"); err != nil {
			return nil, err
		}
		c, err := p.parseCoord()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokClose, "')'"); err != nil {
			return nil, err
		}
		return &Point{Dims: p.layout, Coord: c}, nil

	case GeometryTypeLineString:
		cs, err := p.parseCoordList()
		if err != nil {
			return nil, err
		}
		return &LineString{Dims: p.layout, Points: cs}, nil

	case GeometryTypeCircularString:
		cs, err := p.parseCoordList()
		if err != nil {
			return nil, err
		}
		return &CircularString{Dims: p.layout, Points: cs}, nil

	case GeometryTypePolygon:
		rings, err := p.parseRings()
		if err != nil {
			return nil, err
		}
		return &Polygon{Dims: p.layout, Rings: rings}, nil

	case GeometryTypeTriangle:
		rings, err := p.parseRings()
		if err != nil {
			return nil, err
		}
		return &Triangle{Dims: p.layout, Rings: rings}, nil

	case GeometryTypeMultiPoint:
		mp := &MultiPoint{}
		err := p.parseList(func() error {
			if p.empty() {
				mp.Points = append(mp.Points, EmptyPoint(p.layout))
				return nil
			}
			// Both "MULTIPOINT ((1 2), (3 4))" and "MULTIPOINT (1 2, 3 4)".
			wrapped := p.tok.kind == tokOpen
			if wrapped {
				p.next()
			}
			c, err := p.parseCoord()
			if err != nil {
				return err
			}
			if wrapped {
				if err := p.expect(tokClose, "')'"); err != nil {
					return err
				}
			}
			mp.Points = append(mp.Points, &Point{Coord: c})
			return nil
		})
		if err != nil {
			return nil, err
		}
		mp.Dims = p.layout
		for _, pt := range mp.Points {
			pt.Dims = p.layout
		}
		return mp, nil

	case GeometryTypeMultiLineString:
		mls := &MultiLineString{}
		err := p.parseList(func() error {
			g, err := p.parseBody(GeometryTypeLineString, depth+1)
			if err != nil {
				return err
			}
			mls.LineStrings = append(mls.LineStrings, g.(*LineString))
			return nil
		})
		if err != nil {
			return nil, err
		}
		mls.Dims = p.layout
		return mls, nil

	case GeometryTypeMultiPolygon, GeometryTypePolyhedralSurface:
		var polys []*Polygon
		err := p.parseList(func() error {
			g, err := p.parseBody(GeometryTypePolygon, depth+1)
			if err != nil {
				return err
			}
			polys = append(polys, g.(*Polygon))
			return nil
		})
		if err != nil {
			return nil, err
		}
		if t == GeometryTypePolyhedralSurface {
			return &PolyhedralSurface{Dims: p.layout, Polygons: polys}, nil
		}
		return &MultiPolygon{Dims: p.layout, Polygons: polys}, nil

	case GeometryTypeTIN:
		tin := &TIN{}
		err := p.parseList(func() error {
			g, err := p.parseBody(GeometryTypeTriangle, depth+1)
			if err != nil {
				return err
			}
			tin.Triangles = append(tin.Triangles, g.(*Triangle))
			return nil
		})
		if err != nil {
			return nil, err
		}
		tin.Dims = p.layout
		return tin, nil

	case GeometryTypeCompoundCurve:
		cc := &CompoundCurve{}
		err := p.parseList(func() error {
			var g Geometry
			var err error
			if p.tok.kind == tokOpen {
				g, err = p.parseBody(GeometryTypeLineString, depth+1)
			} else {
				g, err = p.parseGeometry(depth + 1)
			}
			if err != nil {
				return err
			}
			switch g.Type() {
			case GeometryTypeLineString, GeometryTypeCircularString:
			default:
				return p.errorf("compound curve member cannot be %s", g.Type())
			}
			cc.Curves = append(cc.Curves, g)
			return nil
		})
		if err != nil {
			return nil, err
		}
		cc.Dims = p.layout
		return cc, nil

	default:
		gc := &GeometryCollection{}
		err := p.parseList(func() error {
			g, err := p.parseGeometry(depth + 1)
			if err != nil {
				return err
			}
			gc.Geometries = append(gc.Geometries, g)
			return nil
		})
		if err != nil {
			return nil, err
		}
		gc.Dims = p.layout
		return gc, nil
	}
}

// parseList parses "( item, item, ... )".
func (p *wktParser) parseList(item func() error) error {
	if err := p.expect(tokOpen, "'('"); err != nil {
		return err
	}
	for {
		if err := item(); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		p.next()
	}
	return p.expect(tokClose, "')'")
}

func (p *wktParser) parseRings() ([][]Coord, error) {
	var rings [][]Coord
	err := p.parseList(func() error {
		r, err := p.parseCoordList()
		if err != nil {
			return err
		}
		rings = append(rings, r)
		return nil
	})
	return rings, err
}

func (p *wktParser) parseCoordList() ([]Coord, error) {
	var cs []Coord
	err := p.parseList(func() error {
		c, err := p.parseCoord()
		if err != nil {
			return err
		}
		cs = append(cs, c)
		return nil
	})
	return cs, err
}

func (p *wktParser) parseCoord() (Coord, error) {
	var vals [4]float64
	n := 0
	for p.tok.kind == tokNumber {
		if n == len(vals) {
			return Coord{}, p.errorf("too many ordinates")
		}
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return Coord{}, p.errorf("invalid number %q", p.tok.text)
		}
		vals[n] = v
		n++
		p.next()
	}

	if !p.fixed {
		switch n {
		case 2:
			p.layout = XY
		case 3:
			p.layout = XYZ
		case 4:
			p.layout = XYZM
		}
		p.fixed = true
	}
	if n != p.layout.Stride() {
		return Coord{}, p.errorf("expected %d ordinates, got %d", p.layout.Stride(), n)
	}

	c := Coord{X: vals[0], Y: vals[1]}
	switch p.layout {
	case XYZ:
		c.Z = vals[2]
	case XYM:
		c.M = vals[2]
	case XYZM:
		c.Z, c.M = vals[2], vals[3]
	}
	return c, nil
}
