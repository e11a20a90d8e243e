package geopackage

import (
	"github.com/paulmach/orb"
)

// ToOrb converts g to the closest orb geometry, dropping Z and M. Curves are
// returned as the line string through their control points, triangles as
// polygons and surfaces as multi polygons.
func ToOrb(g Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}

	switch v := g.(type) {
	case *Point:
		return orb.Point{v.Coord.X, v.Coord.Y}, nil

	case *LineString:
		return coordsToLineString(v.Points), nil

	case *CircularString:
		return coordsToLineString(v.Points), nil

	case *CompoundCurve:
		var ls orb.LineString
		for _, c := range v.Curves {
			part, err := ToOrb(c)
			if err != nil {
				return nil, err
			}
			pls := part.(orb.LineString)
			// Segments share end points.
			if len(ls) > 0 && len(pls) > 0 && ls[len(ls)-1] == pls[0] {
				pls = pls[1:]
			}
			ls = append(ls, pls...)
		}
		return ls, nil

	case *Polygon:
		return ringsToPolygon(v.Rings), nil

	case *Triangle:
		return ringsToPolygon(v.Rings), nil

	case *MultiPoint:
		mp := make(orb.MultiPoint, 0, len(v.Points))
		for _, p := range v.Points {
			if !p.Empty {
				mp = append(mp, orb.Point{p.Coord.X, p.Coord.Y})
			}
		}
		return mp, nil

	case *MultiLineString:
		mls := make(orb.MultiLineString, 0, len(v.LineStrings))
		for _, ls := range v.LineStrings {
			mls = append(mls, coordsToLineString(ls.Points))
		}
		return mls, nil

	case *MultiPolygon:
		return polygonsToMulti(v.Polygons), nil

	case *PolyhedralSurface:
		return polygonsToMulti(v.Polygons), nil

	case *TIN:
		mp := make(orb.MultiPolygon, 0, len(v.Triangles))
		for _, t := range v.Triangles {
			mp = append(mp, ringsToPolygon(t.Rings))
		}
		return mp, nil

	case *GeometryCollection:
		coll := make(orb.Collection, 0, len(v.Geometries))
		for _, child := range v.Geometries {
			og, err := ToOrb(child)
			if err != nil {
				return nil, err
			}
			coll = append(coll, og)
		}
		return coll, nil

	default:
		return nil, &UnsupportedTypeError{Code: uint32(g.Type())}
	}
}

// FromOrb converts an orb geometry to an XY Geometry. A bound becomes its
// rectangle polygon and a lone ring a single ring polygon.
func FromOrb(g orb.Geometry) (Geometry, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}

	switch v := g.(type) {
	case orb.Point:
		return NewPoint(v[0], v[1]), nil

	case orb.MultiPoint:
		mp := &MultiPoint{Points: make([]*Point, 0, len(v))}
		for _, p := range v {
			mp.Points = append(mp.Points, NewPoint(p[0], p[1]))
		}
		return mp, nil

	case orb.LineString:
		return &LineString{Points: pointsToCoords(v)}, nil

	case orb.MultiLineString:
		mls := &MultiLineString{LineStrings: make([]*LineString, 0, len(v))}
		for _, ls := range v {
			mls.LineStrings = append(mls.LineStrings, &LineString{Points: pointsToCoords(ls)})
		}
		return mls, nil

	case orb.Ring:
		return &Polygon{Rings: [][]Coord{pointsToCoords(v)}}, nil

	case orb.Polygon:
		return polygonFromOrb(v), nil

	case orb.MultiPolygon:
		mp := &MultiPolygon{Polygons: make([]*Polygon, 0, len(v))}
		for _, p := range v {
			mp.Polygons = append(mp.Polygons, polygonFromOrb(p))
		}
		return mp, nil

	case orb.Collection:
		gc := &GeometryCollection{Geometries: make([]Geometry, 0, len(v))}
		for _, child := range v {
			cg, err := FromOrb(child)
			if err != nil {
				return nil, err
			}
			gc.Geometries = append(gc.Geometries, cg)
		}
		return gc, nil

	case orb.Bound:
		return polygonFromOrb(boundToPolygon(v)), nil

	default:
		return nil, ErrUnsupportedType
	}
}

func coordsToLineString(cs []Coord) orb.LineString {
	ls := make(orb.LineString, 0, len(cs))
	for _, c := range cs {
		ls = append(ls, orb.Point{c.X, c.Y})
	}
	return ls
}

func ringsToPolygon(rings [][]Coord) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		poly = append(poly, orb.Ring(coordsToLineString(r)))
	}
	return poly
}

func polygonsToMulti(polys []*Polygon) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(polys))
	for _, p := range polys {
		mp = append(mp, ringsToPolygon(p.Rings))
	}
	return mp
}

func pointsToCoords(ps []orb.Point) []Coord {
	cs := make([]Coord, 0, len(ps))
	for _, p := range ps {
		cs = append(cs, Coord{X: p[0], Y: p[1]})
	}
	return cs
}

func polygonFromOrb(p orb.Polygon) *Polygon {
	poly := &Polygon{Rings: make([][]Coord, 0, len(p))}
	for _, r := range p {
		poly.Rings = append(poly.Rings, pointsToCoords(r))
	}
	return poly
}

func boundToPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{b.Min[0], b.Min[1]},
			{b.Max[0], b.Min[1]},
			{b.Max[0], b.Max[1]},
			{b.Min[0], b.Max[1]},
			{b.Min[0], b.Min[1]},
		},
	}
}
