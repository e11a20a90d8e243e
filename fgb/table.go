package fgb

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sync"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	geopackage "github.com/tingold/orb-geopackage"
	"github.com/tingold/orb-geopackage/tiles"
)

// Table is a read-only feature table backed by an indexed FlatGeobuf file.
// Geometries are served as GeoPackage geometry blobs.
//
// When the file has an integer id column, bound queries go through the
// packed R-tree in the file. Otherwise the features are loaded once, given
// their 1-based position in the file as id, and indexed in memory.
type Table struct {
	fgb    *flatgeobuf.FlatGeoBuf
	raw    *flattypes.Header
	header *Header
	schema *schema
	proj   tiles.Projection
	srsID  int32
	gtype  flattypes.GeometryType
	layout geopackage.Layout
	idCol  int

	mem *tiles.MemorySource

	mu   sync.Mutex
	last *search
}

// search memoizes the last index lookup, as the renderer counts a bound
// before querying it.
type search struct {
	bound    orb.Bound
	features []*flattypes.Feature
}

var (
	_ tiles.FeatureSource = (*Table)(nil)
	_ tiles.SpatialIndex  = (*Table)(nil)
)

// Open opens a FlatGeobuf file. The file must carry a spatial index.
func Open(path string) (*Table, error) {
	f, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return newTable(f)
}

// OpenData opens FlatGeobuf content held in memory.
func OpenData(data []byte) (*Table, error) {
	f, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return newTable(f)
}

func newTable(f *flatgeobuf.FlatGeoBuf) (*Table, error) {
	h := f.Header()
	if h == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	t := &Table{
		fgb:    f,
		raw:    h,
		header: headerFromFGB(h),
		schema: headerSchema(h),
		proj:   tiles.EPSG4326,
		srsID:  4326,
		gtype:  h.GeometryType(),
		layout: layoutOf(h.HasZ(), h.HasM()),
		idCol:  -1,
	}

	if crs := t.header.CRS; crs != nil && crs.Code > 0 {
		t.srsID = int32(crs.Code)
		if p, err := tiles.ProjectionForSRS(t.srsID); err == nil {
			t.proj = p
		} else {
			t.proj = tiles.Projection(t.srsID)
		}
	}

	if i, ok := t.schema.index[DefaultIDColumn]; ok && isInteger(t.schema.types[i]) {
		t.idCol = i
		return t, nil
	}

	if err := t.loadMemory(); err != nil {
		return nil, err
	}
	return t, nil
}

// loadMemory copies every feature into an indexed memory source.
func (t *Table) loadMemory() error {
	t.mem = tiles.NewMemorySource(t.proj)
	raw, err := t.fgb.Search(t.extent())
	if err != nil {
		return err
	}
	for i, ff := range raw {
		f, err := t.convert(ff, int64(i+1))
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}
		if err := t.mem.Add(f); err != nil {
			return err
		}
	}
	return t.mem.BuildIndex()
}

// extent is the header envelope, or everything when it is missing.
func (t *Table) extent() (float64, float64, float64, float64) {
	if t.raw.EnvelopeLength() >= 4 {
		e := t.header.Envelope
		return e[0], e[1], e[2], e[3]
	}
	return -math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
}

// Header returns the file metadata.
func (t *Table) Header() *Header { return t.header }

func (t *Table) Projection() tiles.Projection { return t.proj }

// Count is the feature count from the file header.
func (t *Table) Count() (int, error) {
	return int(t.header.FeaturesCount), nil
}

func (t *Table) Features() iter.Seq2[*tiles.Feature, error] {
	if t.mem != nil {
		return t.mem.Features()
	}
	return t.query(t.extent())
}

func (t *Table) Indexed() bool { return true }

func (t *Table) CountIn(b orb.Bound) (int, error) {
	if t.mem != nil {
		return t.mem.CountIn(b)
	}
	raw, err := t.search(b)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

func (t *Table) Query(b orb.Bound) iter.Seq2[*tiles.Feature, error] {
	if t.mem != nil {
		return t.mem.Query(b)
	}
	return t.query(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Close releases the file. The table is unusable afterwards.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fgb = nil
	t.mem = nil
	t.last = nil
	return nil
}

func (t *Table) query(minX, minY, maxX, maxY float64) iter.Seq2[*tiles.Feature, error] {
	return func(yield func(*tiles.Feature, error) bool) {
		raw, err := t.search(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}})
		if err != nil {
			yield(nil, err)
			return
		}
		for _, ff := range raw {
			f, err := t.convert(ff, 0)
			if err != nil {
				if !yield(nil, &tiles.FeatureError{Err: err}) {
					return
				}
				continue
			}
			if f == nil {
				continue
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

func (t *Table) search(b orb.Bound) ([]*flattypes.Feature, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fgb == nil {
		return nil, errors.New("fgb: table closed")
	}
	if t.last != nil && t.last.bound.Equal(b) {
		return t.last.features, nil
	}

	raw, err := t.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil, err
	}
	t.last = &search{bound: b, features: raw}
	return raw, nil
}

// convert turns a file feature into a tile feature. Features without a
// geometry are dropped. id is used when the table has no id column.
func (t *Table) convert(ff *flattypes.Feature, id int64) (*tiles.Feature, error) {
	var fg flattypes.Geometry
	g := ff.Geometry(&fg)
	if g == nil {
		return nil, nil
	}

	geom, err := geometryFromFGB(g, t.gtype, t.layout)
	if err != nil {
		return nil, err
	}
	blob, err := geopackage.FromGeometry(geom, t.srsID).Encode()
	if err != nil {
		return nil, err
	}

	var props map[string]interface{}
	if n := ff.PropertiesLength(); n > 0 {
		data := make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = byte(ff.Properties(i))
		}
		if props, err = t.schema.decode(data); err != nil {
			return nil, err
		}
	}

	if t.idCol >= 0 {
		v, ok := toInt64(props[t.schema.names[t.idCol]])
		if !ok {
			return nil, fmt.Errorf("%w: feature without %s", ErrInvalidData, t.schema.names[t.idCol])
		}
		id = v
	}

	return &tiles.Feature{ID: id, Geometry: blob, Properties: props}, nil
}

func layoutOf(z, m bool) geopackage.Layout {
	switch {
	case z && m:
		return geopackage.XYZM
	case z:
		return geopackage.XYZ
	case m:
		return geopackage.XYM
	}
	return geopackage.XY
}

// headerFromFGB converts the file header.
func headerFromFGB(h *flattypes.Header) *Header {
	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
		HasZ:          h.HasZ(),
		HasM:          h.HasM(),
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, ColumnInfo{
				Name:        string(col.Name()),
				Type:        flattypes.EnumNamesColumnType[col.Type()],
				Title:       string(col.Title()),
				Description: string(col.Description()),
				Nullable:    col.Nullable(),
			})
		}
	}
	return header
}
