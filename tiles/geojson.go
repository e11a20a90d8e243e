package tiles

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/geojson"
	geopackage "github.com/tingold/orb-geopackage"
)

// LoadGeoJSON reads a FeatureCollection into an indexed MemorySource.
// Feature ids come from an integral "fid" or "id" property, then the GeoJSON
// id, then the 1-based position. Features without a geometry are skipped.
func LoadGeoJSON(data []byte, proj Projection) (*MemorySource, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	src := NewMemorySource(proj)
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		g, err := geopackage.FromOrb(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i+1, err)
		}
		blob, err := geopackage.FromGeometry(g, int32(proj)).Encode()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i+1, err)
		}
		if err := src.Add(&Feature{
			ID:         featureID(f, int64(i+1)),
			Geometry:   blob,
			Properties: f.Properties,
		}); err != nil {
			return nil, err
		}
	}

	if err := src.BuildIndex(); err != nil {
		return nil, err
	}
	return src, nil
}

func featureID(f *geojson.Feature, ordinal int64) int64 {
	for _, v := range []interface{}{f.Properties["fid"], f.Properties["id"], f.ID} {
		if n, ok := v.(float64); ok && n == math.Trunc(n) {
			return int64(n)
		}
	}
	return ordinal
}
