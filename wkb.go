package geopackage

import (
	"encoding/binary"
	"math"
)

// Byte order markers of a well-known binary geometry.
const (
	wkbXDR byte = 0 // big endian
	wkbNDR byte = 1 // little endian
)

// EWKB dimension and SRID flags.
const (
	ewkbZ    uint32 = 0x80000000
	ewkbM    uint32 = 0x40000000
	ewkbSRID uint32 = 0x20000000
)

// maxWKBDepth bounds collection nesting.
const maxWKBDepth = 32

// ReadWKB decodes a well-known binary geometry. ISO (Z +1000, M +2000,
// ZM +3000) and EWKB dimension flags are both accepted. Each nested geometry
// honors its own byte order marker.
func ReadWKB(data []byte) (Geometry, error) {
	r := &wkbReader{data: data}
	g, err := r.readGeometry(0)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// WriteWKB encodes g as ISO well-known binary using the given byte order.
func WriteWKB(g Geometry, order binary.ByteOrder) ([]byte, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}
	if order == nil {
		order = binary.BigEndian
	}
	w := &wkbWriter{order: order}
	if err := w.writeGeometry(g); err != nil {
		return nil, err
	}
	return w.buf, nil
}

type wkbReader struct {
	data  []byte
	off   int
	order binary.ByteOrder
}

func (r *wkbReader) remaining() int {
	return len(r.data) - r.off
}

func (r *wkbReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, decodeErrorf("unexpected end of data at offset %d", r.off)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *wkbReader) readUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, decodeErrorf("unexpected end of data at offset %d", r.off)
	}
	v := r.order.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *wkbReader) readFloat64() (float64, error) {
	if r.remaining() < 8 {
		return 0, decodeErrorf("unexpected end of data at offset %d", r.off)
	}
	v := math.Float64frombits(r.order.Uint64(r.data[r.off:]))
	r.off += 8
	return v, nil
}

// readCount reads an element count and checks that at least minSize bytes per
// element remain, so corrupt counts cannot trigger huge allocations.
func (r *wkbReader) readCount(minSize int) (int, error) {
	n, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(r.remaining()) {
		return 0, decodeErrorf("count %d exceeds remaining %d bytes", n, r.remaining())
	}
	return int(n), nil
}

func (r *wkbReader) readHeader() (GeometryType, Layout, error) {
	marker, err := r.readByte()
	if err != nil {
		return 0, XY, err
	}
	switch marker {
	case wkbXDR:
		r.order = binary.BigEndian
	case wkbNDR:
		r.order = binary.LittleEndian
	default:
		return 0, XY, decodeErrorf("invalid byte order marker %d", marker)
	}

	code, err := r.readUint32()
	if err != nil {
		return 0, XY, err
	}

	z := code&ewkbZ != 0
	m := code&ewkbM != 0
	if code&ewkbSRID != 0 {
		if _, err := r.readUint32(); err != nil {
			return 0, XY, err
		}
	}
	base := code &^ (ewkbZ | ewkbM | ewkbSRID)

	switch base / 1000 {
	case 0:
	case 1:
		z = true
	case 2:
		m = true
	case 3:
		z, m = true, true
	default:
		return 0, XY, &UnsupportedTypeError{Code: code}
	}

	t := GeometryType(base % 1000)
	if !t.Supported() {
		return 0, XY, &UnsupportedTypeError{Code: code}
	}
	return t, layoutOf(z, m), nil
}

func (r *wkbReader) readCoord(l Layout) (Coord, error) {
	var c Coord
	var err error
	if c.X, err = r.readFloat64(); err != nil {
		return c, err
	}
	if c.Y, err = r.readFloat64(); err != nil {
		return c, err
	}
	if l.HasZ() {
		if c.Z, err = r.readFloat64(); err != nil {
			return c, err
		}
	}
	if l.HasM() {
		if c.M, err = r.readFloat64(); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (r *wkbReader) readCoords(l Layout) ([]Coord, error) {
	n, err := r.readCount(8 * l.Stride())
	if err != nil {
		return nil, err
	}
	cs := make([]Coord, n)
	for i := range cs {
		if cs[i], err = r.readCoord(l); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

func (r *wkbReader) readRings(l Layout) ([][]Coord, error) {
	n, err := r.readCount(4)
	if err != nil {
		return nil, err
	}
	rings := make([][]Coord, n)
	for i := range rings {
		if rings[i], err = r.readCoords(l); err != nil {
			return nil, err
		}
	}
	return rings, nil
}

// readMember reads a nested geometry and checks its type.
func (r *wkbReader) readMember(depth int, want ...GeometryType) (Geometry, error) {
	g, err := r.readGeometry(depth + 1)
	if err != nil {
		return nil, err
	}
	for _, t := range want {
		if g.Type() == t {
			return g, nil
		}
	}
	return nil, decodeErrorf("unexpected member type %s", g.Type())
}

func (r *wkbReader) readGeometry(depth int) (Geometry, error) {
	if depth > maxWKBDepth {
		return nil, decodeErrorf("geometry nesting deeper than %d", maxWKBDepth)
	}

	t, l, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	switch t {
	case GeometryTypePoint:
		c, err := r.readCoord(l)
		if err != nil {
			return nil, err
		}
		p := &Point{Dims: l, Coord: c}
		if math.IsNaN(c.X) && math.IsNaN(c.Y) {
			p.Empty = true
		}
		return p, nil

	case GeometryTypeLineString:
		cs, err := r.readCoords(l)
		if err != nil {
			return nil, err
		}
		return &LineString{Dims: l, Points: cs}, nil

	case GeometryTypeCircularString:
		cs, err := r.readCoords(l)
		if err != nil {
			return nil, err
		}
		return &CircularString{Dims: l, Points: cs}, nil

	case GeometryTypePolygon:
		rings, err := r.readRings(l)
		if err != nil {
			return nil, err
		}
		return &Polygon{Dims: l, Rings: rings}, nil

	case GeometryTypeTriangle:
		rings, err := r.readRings(l)
		if err != nil {
			return nil, err
		}
		return &Triangle{Dims: l, Rings: rings}, nil
	}

	// Everything below is a collection of nested geometries, each at least
	// a byte order marker and a type code.
	n, err := r.readCount(5)
	if err != nil {
		return nil, err
	}

	switch t {
	case GeometryTypeMultiPoint:
		mp := &MultiPoint{Dims: l, Points: make([]*Point, 0, n)}
		for i := 0; i < n; i++ {
			g, err := r.readMember(depth, GeometryTypePoint)
			if err != nil {
				return nil, err
			}
			mp.Points = append(mp.Points, g.(*Point))
		}
		return mp, nil

	case GeometryTypeMultiLineString:
		mls := &MultiLineString{Dims: l, LineStrings: make([]*LineString, 0, n)}
		for i := 0; i < n; i++ {
			g, err := r.readMember(depth, GeometryTypeLineString)
			if err != nil {
				return nil, err
			}
			mls.LineStrings = append(mls.LineStrings, g.(*LineString))
		}
		return mls, nil

	case GeometryTypeMultiPolygon, GeometryTypePolyhedralSurface:
		polys := make([]*Polygon, 0, n)
		for i := 0; i < n; i++ {
			g, err := r.readMember(depth, GeometryTypePolygon)
			if err != nil {
				return nil, err
			}
			polys = append(polys, g.(*Polygon))
		}
		if t == GeometryTypePolyhedralSurface {
			return &PolyhedralSurface{Dims: l, Polygons: polys}, nil
		}
		return &MultiPolygon{Dims: l, Polygons: polys}, nil

	case GeometryTypeTIN:
		tin := &TIN{Dims: l, Triangles: make([]*Triangle, 0, n)}
		for i := 0; i < n; i++ {
			g, err := r.readMember(depth, GeometryTypeTriangle)
			if err != nil {
				return nil, err
			}
			tin.Triangles = append(tin.Triangles, g.(*Triangle))
		}
		return tin, nil

	case GeometryTypeCompoundCurve:
		cc := &CompoundCurve{Dims: l, Curves: make([]Geometry, 0, n)}
		for i := 0; i < n; i++ {
			g, err := r.readMember(depth, GeometryTypeLineString, GeometryTypeCircularString)
			if err != nil {
				return nil, err
			}
			cc.Curves = append(cc.Curves, g)
		}
		return cc, nil

	case GeometryTypeGeometryCollection:
		gc := &GeometryCollection{Dims: l, Geometries: make([]Geometry, 0, n)}
		for i := 0; i < n; i++ {
			g, err := r.readGeometry(depth + 1)
			if err != nil {
				return nil, err
			}
			gc.Geometries = append(gc.Geometries, g)
		}
		return gc, nil
	}

	return nil, &UnsupportedTypeError{Code: uint32(t)}
}

type wkbWriter struct {
	order binary.ByteOrder
	buf   []byte
}

func (w *wkbWriter) writeUint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *wkbWriter) writeFloat64(v float64) {
	var b [8]byte
	w.order.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *wkbWriter) writeHeader(t GeometryType, l Layout) {
	if w.order == binary.LittleEndian {
		w.buf = append(w.buf, wkbNDR)
	} else {
		w.buf = append(w.buf, wkbXDR)
	}
	code := uint32(t)
	if l.HasZ() {
		code += 1000
	}
	if l.HasM() {
		code += 2000
	}
	w.writeUint32(code)
}

func (w *wkbWriter) writeCoord(c Coord, l Layout) {
	w.writeFloat64(c.X)
	w.writeFloat64(c.Y)
	if l.HasZ() {
		w.writeFloat64(c.Z)
	}
	if l.HasM() {
		w.writeFloat64(c.M)
	}
}

func (w *wkbWriter) writeCoords(cs []Coord, l Layout) {
	w.writeUint32(uint32(len(cs)))
	for _, c := range cs {
		w.writeCoord(c, l)
	}
}

func (w *wkbWriter) writeRings(rings [][]Coord, l Layout) {
	w.writeUint32(uint32(len(rings)))
	for _, r := range rings {
		w.writeCoords(r, l)
	}
}

func (w *wkbWriter) writeGeometry(g Geometry) error {
	l := g.Layout()
	w.writeHeader(g.Type(), l)

	switch v := g.(type) {
	case *Point:
		if v.Empty {
			nan := math.NaN()
			w.writeCoord(Coord{X: nan, Y: nan, Z: nan, M: nan}, l)
			return nil
		}
		w.writeCoord(v.Coord, l)

	case *LineString:
		w.writeCoords(v.Points, l)

	case *CircularString:
		w.writeCoords(v.Points, l)

	case *Polygon:
		w.writeRings(v.Rings, l)

	case *Triangle:
		w.writeRings(v.Rings, l)

	case *MultiPoint:
		w.writeUint32(uint32(len(v.Points)))
		for _, p := range v.Points {
			if err := w.writeGeometry(p); err != nil {
				return err
			}
		}

	case *MultiLineString:
		w.writeUint32(uint32(len(v.LineStrings)))
		for _, ls := range v.LineStrings {
			if err := w.writeGeometry(ls); err != nil {
				return err
			}
		}

	case *MultiPolygon:
		w.writeUint32(uint32(len(v.Polygons)))
		for _, p := range v.Polygons {
			if err := w.writeGeometry(p); err != nil {
				return err
			}
		}

	case *PolyhedralSurface:
		w.writeUint32(uint32(len(v.Polygons)))
		for _, p := range v.Polygons {
			if err := w.writeGeometry(p); err != nil {
				return err
			}
		}

	case *TIN:
		w.writeUint32(uint32(len(v.Triangles)))
		for _, t := range v.Triangles {
			if err := w.writeGeometry(t); err != nil {
				return err
			}
		}

	case *CompoundCurve:
		w.writeUint32(uint32(len(v.Curves)))
		for _, c := range v.Curves {
			if err := w.writeGeometry(c); err != nil {
				return err
			}
		}

	case *GeometryCollection:
		w.writeUint32(uint32(len(v.Geometries)))
		for _, c := range v.Geometries {
			if err := w.writeGeometry(c); err != nil {
				return err
			}
		}

	default:
		return &UnsupportedTypeError{Code: uint32(g.Type())}
	}
	return nil
}
