package fgb

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	geopackage "github.com/tingold/orb-geopackage"
)

var magic = []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}

func TestWrite_Points(t *testing.T) {
	geometries := []geopackage.Geometry{
		geopackage.NewPoint(1, 2),
		geopackage.NewPoint(3, 4),
		geopackage.NewPoint(5, 6),
	}

	var buf bytes.Buffer
	if err := Write(&buf, geometries, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), magic) {
		t.Errorf("expected magic bytes, got % x", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer

	if err := Write(&buf, nil, nil); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for no geometries, got %v", err)
	}
	if err := Write(&buf, []geopackage.Geometry{geopackage.NewPoint(1, 1), nil}, nil); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for a nil geometry, got %v", err)
	}
	if err := WriteFeatures(&buf, nil, nil); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for a nil collection, got %v", err)
	}
	if err := WriteFeatures(&buf, geojson.NewFeatureCollection(), nil); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for an empty collection, got %v", err)
	}
	if err := WriteFeature(&buf, nil, nil); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry for a nil feature, got %v", err)
	}
	if err := WriteGeoJSON(&buf, []byte("{"), nil); err == nil {
		t.Error("expected error for invalid GeoJSON")
	}
}

func TestWriteFeatures_SkipsMissingGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))
	fc.Append(&geojson.Feature{Type: "Feature", Properties: geojson.Properties{"x": 1}})
	fc.Append(geojson.NewFeature(orb.Point{3, 3}))

	var buf bytes.Buffer
	if err := WriteFeatures(&buf, fc, nil); err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}
	table, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	// Ids keep the position in the collection.
	if ids := collectIDs(t, table.Features()); !slices.Equal(ids, []int64{1, 3}) {
		t.Errorf("expected ids [1 3], got %v", ids)
	}
}

func TestWriteGeoJSON(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":12,"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"name":"a","lanes":2}},
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,0]]]},"properties":{"name":"b","lanes":2.5}}
	]}`)

	opts := DefaultOptions()
	opts.Name = "roads"
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, data, opts); err != nil {
		t.Fatalf("WriteGeoJSON failed: %v", err)
	}

	table, err := OpenData(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	h := table.Header()
	if h.Name != "roads" || h.GeometryType != "Unknown" {
		t.Errorf("unexpected header %+v", h)
	}

	wantTypes := map[string]string{"fid": "Long", "lanes": "Double", "name": "String"}
	for _, c := range h.Columns {
		if wantTypes[c.Name] != c.Type {
			t.Errorf("column %s: expected %s, got %s", c.Name, wantTypes[c.Name], c.Type)
		}
	}

	if ids := collectIDs(t, table.Features()); !slices.Equal(ids, []int64{2, 12}) {
		t.Errorf("expected ids [2 12], got %v", ids)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.IncludeIndex {
		t.Error("expected IncludeIndex to be true by default")
	}
	if opts.CRS == nil || opts.CRS.Code != 4326 {
		t.Errorf("expected WGS84 CRS, got %+v", opts.CRS)
	}
	if opts.IDColumn != DefaultIDColumn {
		t.Errorf("expected id column %q, got %q", DefaultIDColumn, opts.IDColumn)
	}
}
