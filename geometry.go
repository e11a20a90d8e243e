package geopackage

import (
	"math"
	"strings"
)

// GeometryType is the well-known binary base type code of a geometry.
type GeometryType uint32

// Geometry type codes. GeometryTypeGeometry is the abstract "any geometry"
// type used by style mappings for table and feature defaults.
const (
	GeometryTypeGeometry           GeometryType = 0
	GeometryTypePoint              GeometryType = 1
	GeometryTypeLineString         GeometryType = 2
	GeometryTypePolygon            GeometryType = 3
	GeometryTypeMultiPoint         GeometryType = 4
	GeometryTypeMultiLineString    GeometryType = 5
	GeometryTypeMultiPolygon       GeometryType = 6
	GeometryTypeGeometryCollection GeometryType = 7
	GeometryTypeCircularString     GeometryType = 8
	GeometryTypeCompoundCurve      GeometryType = 9
	GeometryTypePolyhedralSurface  GeometryType = 15
	GeometryTypeTIN                GeometryType = 16
	GeometryTypeTriangle           GeometryType = 17
)

var geometryTypeNames = map[GeometryType]string{
	GeometryTypeGeometry:           "GEOMETRY",
	GeometryTypePoint:              "POINT",
	GeometryTypeLineString:         "LINESTRING",
	GeometryTypePolygon:            "POLYGON",
	GeometryTypeMultiPoint:         "MULTIPOINT",
	GeometryTypeMultiLineString:    "MULTILINESTRING",
	GeometryTypeMultiPolygon:       "MULTIPOLYGON",
	GeometryTypeGeometryCollection: "GEOMETRYCOLLECTION",
	GeometryTypeCircularString:     "CIRCULARSTRING",
	GeometryTypeCompoundCurve:      "COMPOUNDCURVE",
	GeometryTypePolyhedralSurface:  "POLYHEDRALSURFACE",
	GeometryTypeTIN:                "TIN",
	GeometryTypeTriangle:           "TRIANGLE",
}

// String returns the upper case well-known text name of the type.
func (t GeometryType) String() string {
	if name, ok := geometryTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Supported reports whether the type code is part of the geometry model.
func (t GeometryType) Supported() bool {
	_, ok := geometryTypeNames[t]
	return ok && t != GeometryTypeGeometry
}

// Extended reports whether the type lies outside the core GeoPackage types,
// which is what the blob's extended-type flag records.
func (t GeometryType) Extended() bool {
	return t > GeometryTypeGeometryCollection
}

// ParseGeometryType looks a type up by name, ignoring case and underscores
// ("MultiPolygon", "multi_polygon" and "MULTIPOLYGON" are the same).
func ParseGeometryType(name string) (GeometryType, bool) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	for t, n := range geometryTypeNames {
		if n == key {
			return t, true
		}
	}
	return 0, false
}

// Layout describes which optional ordinates a geometry carries.
type Layout uint8

// Coordinate layouts.
const (
	XY Layout = iota
	XYZ
	XYM
	XYZM
)

// HasZ reports whether the layout has a Z ordinate.
func (l Layout) HasZ() bool { return l == XYZ || l == XYZM }

// HasM reports whether the layout has an M ordinate.
func (l Layout) HasM() bool { return l == XYM || l == XYZM }

// Stride is the number of doubles per coordinate.
func (l Layout) Stride() int {
	switch l {
	case XYZ, XYM:
		return 3
	case XYZM:
		return 4
	default:
		return 2
	}
}

func layoutOf(z, m bool) Layout {
	switch {
	case z && m:
		return XYZM
	case z:
		return XYZ
	case m:
		return XYM
	default:
		return XY
	}
}

// Coord is a single position. Z and M are only meaningful when the owning
// geometry's layout says so.
type Coord struct {
	X, Y, Z, M float64
}

// Geometry is the closed set of geometry values this package understands.
// The concrete types are the pointer types declared in this file.
type Geometry interface {
	Type() GeometryType
	Layout() Layout
	IsEmpty() bool
	geometry()
}

// Point is a single position. An empty point has no coordinate.
type Point struct {
	Dims  Layout
	Coord Coord
	Empty bool
}

// LineString is a connected sequence of positions.
type LineString struct {
	Dims   Layout
	Points []Coord
}

// CircularString is a sequence of arcs, each defined by three positions with
// consecutive arcs sharing their end point.
type CircularString struct {
	Dims   Layout
	Points []Coord
}

// CompoundCurve is a chain of LineString and CircularString segments.
type CompoundCurve struct {
	Dims   Layout
	Curves []Geometry
}

// Polygon is an exterior ring followed by zero or more interior rings.
type Polygon struct {
	Dims  Layout
	Rings [][]Coord
}

// Triangle is a polygon with a single four position exterior ring.
type Triangle struct {
	Dims  Layout
	Rings [][]Coord
}

// MultiPoint is a set of points.
type MultiPoint struct {
	Dims   Layout
	Points []*Point
}

// MultiLineString is a set of line strings.
type MultiLineString struct {
	Dims        Layout
	LineStrings []*LineString
}

// MultiPolygon is a set of polygons.
type MultiPolygon struct {
	Dims     Layout
	Polygons []*Polygon
}

// PolyhedralSurface is a set of polygon patches sharing edges.
type PolyhedralSurface struct {
	Dims     Layout
	Polygons []*Polygon
}

// TIN is a triangulated irregular network.
type TIN struct {
	Dims      Layout
	Triangles []*Triangle
}

// GeometryCollection is a heterogeneous set of geometries.
type GeometryCollection struct {
	Dims       Layout
	Geometries []Geometry
}

func (*Point) Type() GeometryType              { return GeometryTypePoint }
func (*LineString) Type() GeometryType         { return GeometryTypeLineString }
func (*CircularString) Type() GeometryType     { return GeometryTypeCircularString }
func (*CompoundCurve) Type() GeometryType      { return GeometryTypeCompoundCurve }
func (*Polygon) Type() GeometryType            { return GeometryTypePolygon }
func (*Triangle) Type() GeometryType           { return GeometryTypeTriangle }
func (*MultiPoint) Type() GeometryType         { return GeometryTypeMultiPoint }
func (*MultiLineString) Type() GeometryType    { return GeometryTypeMultiLineString }
func (*MultiPolygon) Type() GeometryType       { return GeometryTypeMultiPolygon }
func (*PolyhedralSurface) Type() GeometryType  { return GeometryTypePolyhedralSurface }
func (*TIN) Type() GeometryType                { return GeometryTypeTIN }
func (*GeometryCollection) Type() GeometryType { return GeometryTypeGeometryCollection }

func (g *Point) Layout() Layout              { return g.Dims }
func (g *LineString) Layout() Layout         { return g.Dims }
func (g *CircularString) Layout() Layout     { return g.Dims }
func (g *CompoundCurve) Layout() Layout      { return g.Dims }
func (g *Polygon) Layout() Layout            { return g.Dims }
func (g *Triangle) Layout() Layout           { return g.Dims }
func (g *MultiPoint) Layout() Layout         { return g.Dims }
func (g *MultiLineString) Layout() Layout    { return g.Dims }
func (g *MultiPolygon) Layout() Layout       { return g.Dims }
func (g *PolyhedralSurface) Layout() Layout  { return g.Dims }
func (g *TIN) Layout() Layout                { return g.Dims }
func (g *GeometryCollection) Layout() Layout { return g.Dims }

func (g *Point) IsEmpty() bool              { return g.Empty }
func (g *LineString) IsEmpty() bool         { return len(g.Points) == 0 }
func (g *CircularString) IsEmpty() bool     { return len(g.Points) == 0 }
func (g *CompoundCurve) IsEmpty() bool      { return len(g.Curves) == 0 }
func (g *Polygon) IsEmpty() bool            { return len(g.Rings) == 0 }
func (g *Triangle) IsEmpty() bool           { return len(g.Rings) == 0 }
func (g *MultiPoint) IsEmpty() bool         { return len(g.Points) == 0 }
func (g *MultiLineString) IsEmpty() bool    { return len(g.LineStrings) == 0 }
func (g *MultiPolygon) IsEmpty() bool       { return len(g.Polygons) == 0 }
func (g *PolyhedralSurface) IsEmpty() bool  { return len(g.Polygons) == 0 }
func (g *TIN) IsEmpty() bool                { return len(g.Triangles) == 0 }
func (g *GeometryCollection) IsEmpty() bool { return len(g.Geometries) == 0 }

func (*Point) geometry()              {}
func (*LineString) geometry()         {}
func (*CircularString) geometry()     {}
func (*CompoundCurve) geometry()      {}
func (*Polygon) geometry()            {}
func (*Triangle) geometry()           {}
func (*MultiPoint) geometry()         {}
func (*MultiLineString) geometry()    {}
func (*MultiPolygon) geometry()       {}
func (*PolyhedralSurface) geometry()  {}
func (*TIN) geometry()                {}
func (*GeometryCollection) geometry() {}

// NewPoint returns a two dimensional point.
func NewPoint(x, y float64) *Point {
	return &Point{Coord: Coord{X: x, Y: y}}
}

// EmptyPoint returns a point without a position.
func EmptyPoint(l Layout) *Point {
	nan := math.NaN()
	return &Point{Dims: l, Coord: Coord{X: nan, Y: nan, Z: nan, M: nan}, Empty: true}
}

// EachCoord calls fn for every position of g, depth first.
func EachCoord(g Geometry, fn func(Coord)) {
	switch v := g.(type) {
	case *Point:
		if !v.Empty {
			fn(v.Coord)
		}
	case *LineString:
		eachInSlice(v.Points, fn)
	case *CircularString:
		eachInSlice(v.Points, fn)
	case *CompoundCurve:
		for _, c := range v.Curves {
			EachCoord(c, fn)
		}
	case *Polygon:
		for _, r := range v.Rings {
			eachInSlice(r, fn)
		}
	case *Triangle:
		for _, r := range v.Rings {
			eachInSlice(r, fn)
		}
	case *MultiPoint:
		for _, p := range v.Points {
			EachCoord(p, fn)
		}
	case *MultiLineString:
		for _, ls := range v.LineStrings {
			EachCoord(ls, fn)
		}
	case *MultiPolygon:
		for _, p := range v.Polygons {
			EachCoord(p, fn)
		}
	case *PolyhedralSurface:
		for _, p := range v.Polygons {
			EachCoord(p, fn)
		}
	case *TIN:
		for _, t := range v.Triangles {
			EachCoord(t, fn)
		}
	case *GeometryCollection:
		for _, c := range v.Geometries {
			EachCoord(c, fn)
		}
	}
}

func eachInSlice(cs []Coord, fn func(Coord)) {
	for _, c := range cs {
		fn(c)
	}
}

// Clone returns a deep copy of g.
func Clone(g Geometry) Geometry {
	switch v := g.(type) {
	case nil:
		return nil
	case *Point:
		p := *v
		return &p
	case *LineString:
		return &LineString{Dims: v.Dims, Points: cloneCoords(v.Points)}
	case *CircularString:
		return &CircularString{Dims: v.Dims, Points: cloneCoords(v.Points)}
	case *CompoundCurve:
		return &CompoundCurve{Dims: v.Dims, Curves: cloneGeometries(v.Curves)}
	case *Polygon:
		return clonePolygon(v)
	case *Triangle:
		return &Triangle{Dims: v.Dims, Rings: cloneRings(v.Rings)}
	case *MultiPoint:
		mp := &MultiPoint{Dims: v.Dims, Points: make([]*Point, len(v.Points))}
		for i, p := range v.Points {
			c := *p
			mp.Points[i] = &c
		}
		return mp
	case *MultiLineString:
		mls := &MultiLineString{Dims: v.Dims, LineStrings: make([]*LineString, len(v.LineStrings))}
		for i, ls := range v.LineStrings {
			mls.LineStrings[i] = &LineString{Dims: ls.Dims, Points: cloneCoords(ls.Points)}
		}
		return mls
	case *MultiPolygon:
		mp := &MultiPolygon{Dims: v.Dims, Polygons: make([]*Polygon, len(v.Polygons))}
		for i, p := range v.Polygons {
			mp.Polygons[i] = clonePolygon(p)
		}
		return mp
	case *PolyhedralSurface:
		ps := &PolyhedralSurface{Dims: v.Dims, Polygons: make([]*Polygon, len(v.Polygons))}
		for i, p := range v.Polygons {
			ps.Polygons[i] = clonePolygon(p)
		}
		return ps
	case *TIN:
		tin := &TIN{Dims: v.Dims, Triangles: make([]*Triangle, len(v.Triangles))}
		for i, t := range v.Triangles {
			tin.Triangles[i] = &Triangle{Dims: t.Dims, Rings: cloneRings(t.Rings)}
		}
		return tin
	case *GeometryCollection:
		return &GeometryCollection{Dims: v.Dims, Geometries: cloneGeometries(v.Geometries)}
	default:
		return nil
	}
}

func cloneCoords(cs []Coord) []Coord {
	if cs == nil {
		return nil
	}
	out := make([]Coord, len(cs))
	copy(out, cs)
	return out
}

func cloneRings(rings [][]Coord) [][]Coord {
	if rings == nil {
		return nil
	}
	out := make([][]Coord, len(rings))
	for i, r := range rings {
		out[i] = cloneCoords(r)
	}
	return out
}

func clonePolygon(p *Polygon) *Polygon {
	return &Polygon{Dims: p.Dims, Rings: cloneRings(p.Rings)}
}

func cloneGeometries(gs []Geometry) []Geometry {
	if gs == nil {
		return nil
	}
	out := make([]Geometry, len(gs))
	for i, g := range gs {
		out[i] = Clone(g)
	}
	return out
}
