package fgb

import (
	"fmt"
	"io"
	"maps"

	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
	geopackage "github.com/tingold/orb-geopackage"
)

// Write writes geometries without properties. With an id column configured
// each geometry gets its 1-based position as id.
func Write(w io.Writer, geometries []geopackage.Geometry, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(geometries) == 0 {
		return ErrNilGeometry
	}

	rows := make([]row, 0, len(geometries))
	for i, g := range geometries {
		rows = append(rows, row{ordinal: i + 1, geometry: g})
	}
	return writeRows(w, rows, opts)
}

// WriteFeatures writes a FeatureCollection. Features without the id column
// take their numeric GeoJSON id, or their 1-based position.
func WriteFeatures(w io.Writer, fc *geojson.FeatureCollection, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if fc == nil || len(fc.Features) == 0 {
		return ErrNilGeometry
	}

	rows := make([]row, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		g, err := geopackage.FromOrb(f.Geometry)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		rows = append(rows, row{ordinal: i + 1, id: f.ID, geometry: g, properties: f.Properties})
	}
	if len(rows) == 0 {
		return ErrNilGeometry
	}
	return writeRows(w, rows, opts)
}

// WriteFeature writes a single feature.
func WriteFeature(w io.Writer, f *geojson.Feature, opts *Options) error {
	if f == nil {
		return ErrNilGeometry
	}
	return WriteFeatures(w, &geojson.FeatureCollection{Features: []*geojson.Feature{f}}, opts)
}

// WriteGeoJSON converts a GeoJSON FeatureCollection document.
func WriteGeoJSON(w io.Writer, data []byte, opts *Options) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parse geojson: %w", err)
	}
	return WriteFeatures(w, fc, opts)
}

type row struct {
	ordinal    int
	id         interface{}
	geometry   geopackage.Geometry
	properties map[string]interface{}
}

// withID returns the row properties including the id column.
func (r row) withID(column string) map[string]interface{} {
	if column == "" {
		return r.properties
	}
	if v, ok := r.properties[column]; ok && v != nil {
		return r.properties
	}

	props := maps.Clone(r.properties)
	if props == nil {
		props = make(map[string]interface{}, 1)
	}
	if id, ok := toInt64(r.id); ok {
		props[column] = id
	} else {
		props[column] = int64(r.ordinal)
	}
	return props
}

func writeRows(w io.Writer, rows []row, opts *Options) error {
	props := make([]map[string]interface{}, len(rows))
	geoms := make([]geopackage.Geometry, len(rows))
	for i, r := range rows {
		props[i] = r.withID(opts.IDColumn)
		geoms[i] = r.geometry
	}
	s := inferSchema(props, opts.IDColumn)

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(tableGeometryType(geoms))
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if s.len() > 0 {
		header.SetColumns(s.columns(builder))
	}
	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Description != "" {
			crs.SetDescription(opts.CRS.Description)
		}
		header.SetCrs(crs)
	}

	gen := &rowGenerator{geoms: geoms, props: props, schema: s}
	if _, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w); err != nil {
		return err
	}
	return gen.err
}

// rowGenerator feeds rows to the FlatGeobuf writer. The writer has no error
// path, so the first failure ends generation and is kept in err.
type rowGenerator struct {
	geoms  []geopackage.Geometry
	props  []map[string]interface{}
	schema *schema
	next   int
	err    error
}

func (g *rowGenerator) Generate() *writer.Feature {
	if g.err != nil || g.next >= len(g.geoms) {
		return nil
	}
	i := g.next
	g.next++

	builder := flatbuffers.NewBuilder(1024)
	geom, err := geometryToFGB(g.geoms[i], builder)
	if err != nil {
		g.err = fmt.Errorf("feature %d: %w", i+1, err)
		return nil
	}
	feature := writer.NewFeature(builder)
	feature.SetGeometry(geom)

	data, err := g.schema.encode(g.props[i])
	if err != nil {
		g.err = fmt.Errorf("feature %d: %w", i+1, err)
		return nil
	}
	if len(data) > 0 {
		feature.SetProperties(data)
	}
	return feature
}

var _ writer.FeatureGenerator = (*rowGenerator)(nil)
