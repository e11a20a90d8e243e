package fgb

import (
	"fmt"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	geopackage "github.com/tingold/orb-geopackage"
)

// FlatGeobuf numbers its geometry types like well-known binary, so the two
// enums convert directly.

func fgbType(t geopackage.GeometryType) flattypes.GeometryType {
	return flattypes.GeometryType(t)
}

func gpkgType(t flattypes.GeometryType) geopackage.GeometryType {
	return geopackage.GeometryType(t)
}

// tableGeometryType is the header type for a set of geometries: their common
// type, or Unknown when they differ.
func tableGeometryType(gs []geopackage.Geometry) flattypes.GeometryType {
	t := flattypes.GeometryTypeUnknown
	seen := false
	for _, g := range gs {
		if g == nil {
			continue
		}
		ft := fgbType(g.Type())
		if seen && t != ft {
			return flattypes.GeometryTypeUnknown
		}
		t, seen = ft, true
	}
	return t
}

// geometryToFGB converts g to a FlatGeobuf geometry. Only X and Y are
// written.
func geometryToFGB(g geopackage.Geometry, builder *flatbuffers.Builder) (*writer.Geometry, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}

	out := writer.NewGeometry(builder)
	out.SetType(fgbType(g.Type()))

	switch v := g.(type) {
	case *geopackage.Point:
		if !v.Empty {
			out.SetXY([]float64{v.Coord.X, v.Coord.Y})
		}

	case *geopackage.MultiPoint:
		xy := make([]float64, 0, len(v.Points)*2)
		for _, p := range v.Points {
			if !p.Empty {
				xy = append(xy, p.Coord.X, p.Coord.Y)
			}
		}
		out.SetXY(xy)

	case *geopackage.LineString:
		out.SetXY(coordsToXY(v.Points))

	case *geopackage.CircularString:
		out.SetXY(coordsToXY(v.Points))

	case *geopackage.MultiLineString:
		parts := make([][]geopackage.Coord, len(v.LineStrings))
		for i, ls := range v.LineStrings {
			parts[i] = ls.Points
		}
		xy, ends := ringsToXYEnds(parts)
		out.SetXY(xy)
		out.SetEnds(ends)

	case *geopackage.Polygon:
		xy, ends := ringsToXYEnds(v.Rings)
		out.SetXY(xy)
		out.SetEnds(ends)

	case *geopackage.Triangle:
		xy, ends := ringsToXYEnds(v.Rings)
		out.SetXY(xy)
		out.SetEnds(ends)

	case *geopackage.MultiPolygon:
		return withParts(out, builder, len(v.Polygons), func(i int) geopackage.Geometry { return v.Polygons[i] })

	case *geopackage.PolyhedralSurface:
		return withParts(out, builder, len(v.Polygons), func(i int) geopackage.Geometry { return v.Polygons[i] })

	case *geopackage.TIN:
		return withParts(out, builder, len(v.Triangles), func(i int) geopackage.Geometry { return v.Triangles[i] })

	case *geopackage.CompoundCurve:
		return withParts(out, builder, len(v.Curves), func(i int) geopackage.Geometry { return v.Curves[i] })

	case *geopackage.GeometryCollection:
		return withParts(out, builder, len(v.Geometries), func(i int) geopackage.Geometry { return v.Geometries[i] })

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, g.Type())
	}

	return out, nil
}

func withParts(out *writer.Geometry, builder *flatbuffers.Builder, n int, part func(int) geopackage.Geometry) (*writer.Geometry, error) {
	parts := make([]writer.Geometry, 0, n)
	for i := 0; i < n; i++ {
		p, err := geometryToFGB(part(i), builder)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *p)
	}
	out.SetParts(parts)
	return out, nil
}

func coordsToXY(cs []geopackage.Coord) []float64 {
	xy := make([]float64, 0, len(cs)*2)
	for _, c := range cs {
		xy = append(xy, c.X, c.Y)
	}
	return xy
}

func ringsToXYEnds(rings [][]geopackage.Coord) ([]float64, []uint32) {
	total := 0
	for _, r := range rings {
		total += len(r)
	}

	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(rings))
	cumulative := uint32(0)
	for _, r := range rings {
		xy = append(xy, coordsToXY(r)...)
		cumulative += uint32(len(r))
		ends = append(ends, cumulative)
	}
	return xy, ends
}

// geometryFromFGB converts a FlatGeobuf geometry. t is used when the
// geometry does not carry its own type, as FlatGeobuf omits it when the
// header already fixes it.
func geometryFromFGB(g *flattypes.Geometry, t flattypes.GeometryType, l geopackage.Layout) (geopackage.Geometry, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}
	if own := g.Type(); own != flattypes.GeometryTypeUnknown {
		t = own
	}

	switch gpkgType(t) {
	case geopackage.GeometryTypePoint:
		cs, err := readCoords(g, l)
		if err != nil {
			return nil, err
		}
		if len(cs) == 0 {
			return geopackage.EmptyPoint(l), nil
		}
		return &geopackage.Point{Dims: l, Coord: cs[0]}, nil

	case geopackage.GeometryTypeMultiPoint:
		cs, err := readCoords(g, l)
		if err != nil {
			return nil, err
		}
		mp := &geopackage.MultiPoint{Dims: l, Points: make([]*geopackage.Point, len(cs))}
		for i, c := range cs {
			mp.Points[i] = &geopackage.Point{Dims: l, Coord: c}
		}
		return mp, nil

	case geopackage.GeometryTypeLineString:
		cs, err := readCoords(g, l)
		if err != nil {
			return nil, err
		}
		return &geopackage.LineString{Dims: l, Points: cs}, nil

	case geopackage.GeometryTypeCircularString:
		cs, err := readCoords(g, l)
		if err != nil {
			return nil, err
		}
		return &geopackage.CircularString{Dims: l, Points: cs}, nil

	case geopackage.GeometryTypeMultiLineString:
		rings, err := readRings(g, l)
		if err != nil {
			return nil, err
		}
		mls := &geopackage.MultiLineString{Dims: l, LineStrings: make([]*geopackage.LineString, len(rings))}
		for i, r := range rings {
			mls.LineStrings[i] = &geopackage.LineString{Dims: l, Points: r}
		}
		return mls, nil

	case geopackage.GeometryTypePolygon:
		rings, err := readRings(g, l)
		if err != nil {
			return nil, err
		}
		return &geopackage.Polygon{Dims: l, Rings: rings}, nil

	case geopackage.GeometryTypeTriangle:
		rings, err := readRings(g, l)
		if err != nil {
			return nil, err
		}
		return &geopackage.Triangle{Dims: l, Rings: rings}, nil

	case geopackage.GeometryTypeMultiPolygon, geopackage.GeometryTypePolyhedralSurface:
		if g.PartsLength() == 0 {
			// A single polygon stored inline.
			rings, err := readRings(g, l)
			if err != nil {
				return nil, err
			}
			polys := []*geopackage.Polygon{}
			if len(rings) > 0 {
				polys = append(polys, &geopackage.Polygon{Dims: l, Rings: rings})
			}
			if gpkgType(t) == geopackage.GeometryTypeMultiPolygon {
				return &geopackage.MultiPolygon{Dims: l, Polygons: polys}, nil
			}
			return &geopackage.PolyhedralSurface{Dims: l, Polygons: polys}, nil
		}
		parts, err := readParts(g, flattypes.GeometryTypePolygon, l, geopackage.GeometryTypePolygon)
		if err != nil {
			return nil, err
		}
		polys := make([]*geopackage.Polygon, len(parts))
		for i, p := range parts {
			polys[i] = p.(*geopackage.Polygon)
		}
		if gpkgType(t) == geopackage.GeometryTypeMultiPolygon {
			return &geopackage.MultiPolygon{Dims: l, Polygons: polys}, nil
		}
		return &geopackage.PolyhedralSurface{Dims: l, Polygons: polys}, nil

	case geopackage.GeometryTypeTIN:
		parts, err := readParts(g, flattypes.GeometryTypeTriangle, l, geopackage.GeometryTypeTriangle)
		if err != nil {
			return nil, err
		}
		tin := &geopackage.TIN{Dims: l, Triangles: make([]*geopackage.Triangle, len(parts))}
		for i, p := range parts {
			tin.Triangles[i] = p.(*geopackage.Triangle)
		}
		return tin, nil

	case geopackage.GeometryTypeCompoundCurve:
		parts, err := readParts(g, flattypes.GeometryTypeLineString, l,
			geopackage.GeometryTypeLineString, geopackage.GeometryTypeCircularString)
		if err != nil {
			return nil, err
		}
		return &geopackage.CompoundCurve{Dims: l, Curves: parts}, nil

	case geopackage.GeometryTypeGeometryCollection:
		parts, err := readParts(g, flattypes.GeometryTypeUnknown, l)
		if err != nil {
			return nil, err
		}
		return &geopackage.GeometryCollection{Dims: l, Geometries: parts}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, flattypes.EnumNamesGeometryType[t])
}

// readParts converts every part of g. When want is set, each part must be
// one of those types.
func readParts(g *flattypes.Geometry, def flattypes.GeometryType, l geopackage.Layout, want ...geopackage.GeometryType) ([]geopackage.Geometry, error) {
	n := g.PartsLength()
	parts := make([]geopackage.Geometry, 0, n)
	for i := 0; i < n; i++ {
		var part flattypes.Geometry
		if !g.Parts(&part, i) {
			return nil, fmt.Errorf("%w: missing part %d", ErrInvalidData, i)
		}
		p, err := geometryFromFGB(&part, def, l)
		if err != nil {
			return nil, err
		}
		if len(want) > 0 && !containsType(want, p.Type()) {
			return nil, fmt.Errorf("%w: %s part", ErrUnsupportedType, p.Type())
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func containsType(ts []geopackage.GeometryType, t geopackage.GeometryType) bool {
	for _, c := range ts {
		if c == t {
			return true
		}
	}
	return false
}

// readCoords reads every position of g.
func readCoords(g *flattypes.Geometry, l geopackage.Layout) ([]geopackage.Coord, error) {
	n := g.XyLength()
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: odd xy length %d", ErrInvalidData, n)
	}
	return readRange(g, l, 0, n/2), nil
}

// readRange reads positions [start, end).
func readRange(g *flattypes.Geometry, l geopackage.Layout, start, end int) []geopackage.Coord {
	zn, mn := g.ZLength(), g.MLength()
	cs := make([]geopackage.Coord, 0, end-start)
	for i := start; i < end; i++ {
		c := geopackage.Coord{X: g.Xy(2 * i), Y: g.Xy(2*i + 1)}
		if l.HasZ() && i < zn {
			c.Z = g.Z(i)
		}
		if l.HasM() && i < mn {
			c.M = g.M(i)
		}
		cs = append(cs, c)
	}
	return cs
}

// readRings splits the positions of g at its ends. Without ends all
// positions form one ring.
func readRings(g *flattypes.Geometry, l geopackage.Layout) ([][]geopackage.Coord, error) {
	n := g.XyLength()
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: odd xy length %d", ErrInvalidData, n)
	}
	points := n / 2
	if points == 0 {
		return nil, nil
	}

	endsLen := g.EndsLength()
	if endsLen == 0 {
		return [][]geopackage.Coord{readRange(g, l, 0, points)}, nil
	}

	rings := make([][]geopackage.Coord, 0, endsLen)
	start := 0
	for i := 0; i < endsLen; i++ {
		end := int(g.Ends(i))
		if end < start || end > points {
			return nil, fmt.Errorf("%w: ring end %d out of range", ErrInvalidData, end)
		}
		rings = append(rings, readRange(g, l, start, end))
		start = end
	}
	return rings, nil
}
