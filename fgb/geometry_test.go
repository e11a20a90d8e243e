package fgb

import (
	"errors"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	geopackage "github.com/tingold/orb-geopackage"
)

func TestGeometryTypeMapping(t *testing.T) {
	tests := []struct {
		gpkg geopackage.GeometryType
		fgb  flattypes.GeometryType
	}{
		{geopackage.GeometryTypePoint, flattypes.GeometryTypePoint},
		{geopackage.GeometryTypeLineString, flattypes.GeometryTypeLineString},
		{geopackage.GeometryTypePolygon, flattypes.GeometryTypePolygon},
		{geopackage.GeometryTypeMultiPoint, flattypes.GeometryTypeMultiPoint},
		{geopackage.GeometryTypeMultiLineString, flattypes.GeometryTypeMultiLineString},
		{geopackage.GeometryTypeMultiPolygon, flattypes.GeometryTypeMultiPolygon},
		{geopackage.GeometryTypeGeometryCollection, flattypes.GeometryTypeGeometryCollection},
		{geopackage.GeometryTypeCircularString, flattypes.GeometryTypeCircularString},
		{geopackage.GeometryTypeCompoundCurve, flattypes.GeometryTypeCompoundCurve},
		{geopackage.GeometryTypePolyhedralSurface, flattypes.GeometryTypePolyhedralSurface},
		{geopackage.GeometryTypeTIN, flattypes.GeometryTypeTIN},
		{geopackage.GeometryTypeTriangle, flattypes.GeometryTypeTriangle},
	}

	for _, tt := range tests {
		if got := fgbType(tt.gpkg); got != tt.fgb {
			t.Errorf("fgbType(%s) = %s", tt.gpkg, flattypes.EnumNamesGeometryType[got])
		}
		if got := gpkgType(tt.fgb); got != tt.gpkg {
			t.Errorf("gpkgType(%s) = %s", flattypes.EnumNamesGeometryType[tt.fgb], got)
		}
	}
}

func TestTableGeometryType(t *testing.T) {
	line := &geopackage.LineString{Points: []geopackage.Coord{{X: 0}, {X: 1}}}

	tests := []struct {
		name     string
		geoms    []geopackage.Geometry
		expected flattypes.GeometryType
	}{
		{"uniform", []geopackage.Geometry{geopackage.NewPoint(1, 1), geopackage.NewPoint(2, 2)}, flattypes.GeometryTypePoint},
		{"mixed", []geopackage.Geometry{geopackage.NewPoint(1, 1), line}, flattypes.GeometryTypeUnknown},
		{"leading nil", []geopackage.Geometry{nil, line, line}, flattypes.GeometryTypeLineString},
		{"none", nil, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tableGeometryType(tt.geoms); got != tt.expected {
				t.Errorf("expected %s, got %s", flattypes.EnumNamesGeometryType[tt.expected], flattypes.EnumNamesGeometryType[got])
			}
		})
	}
}

func TestRingsToXYEnds(t *testing.T) {
	rings := [][]geopackage.Coord{
		{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 0}},
		{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 1}},
	}

	xy, ends := ringsToXYEnds(rings)
	if len(xy) != 14 {
		t.Errorf("expected 14 values, got %d", len(xy))
	}
	if len(ends) != 2 || ends[0] != 4 || ends[1] != 7 {
		t.Errorf("expected ends [4 7], got %v", ends)
	}
	if xy[8] != 1 || xy[9] != 1 {
		t.Errorf("expected the hole to start at (1 1), got (%v %v)", xy[8], xy[9])
	}
}

func TestGeometryToFGB_Nil(t *testing.T) {
	builder := flatbuffers.NewBuilder(64)
	if _, err := geometryToFGB(nil, builder); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry, got %v", err)
	}
	gc := &geopackage.GeometryCollection{Geometries: []geopackage.Geometry{geopackage.NewPoint(1, 1), nil}}
	if _, err := geometryToFGB(gc, builder); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for a nil member, got %v", err)
	}
	if _, err := geometryFromFGB(nil, flattypes.GeometryTypePoint, geopackage.XY); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry, got %v", err)
	}
}
