package tiles

import (
	"iter"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	geopackage "github.com/tingold/orb-geopackage"
)

// Feature is one row of a feature table: its id, geometry blob and
// attributes.
type Feature struct {
	ID         int64
	Geometry   []byte
	Properties map[string]interface{}
}

// FeatureSource is a feature table. Features are scanned in full when the
// source does not also implement SpatialIndex.
type FeatureSource interface {
	// Projection is the coordinate reference system of the geometries.
	Projection() Projection
	Count() (int, error)
	Features() iter.Seq2[*Feature, error]
}

// SpatialIndex is implemented by sources that can answer bound queries.
// Bounds are in the source projection.
type SpatialIndex interface {
	Indexed() bool
	CountIn(b orb.Bound) (int, error)
	Query(b orb.Bound) iter.Seq2[*Feature, error]
}

// MemorySource is an in-memory FeatureSource with an optional R-tree index
// over the feature envelopes.
type MemorySource struct {
	proj     Projection
	features []*Feature
	tree     *rtreego.Rtree
}

// NewMemorySource creates an empty, unindexed source.
func NewMemorySource(proj Projection) *MemorySource {
	return &MemorySource{proj: proj}
}

// Add appends features. An existing index is updated.
func (s *MemorySource) Add(features ...*Feature) error {
	for _, f := range features {
		if s.tree != nil {
			item, err := newIndexedFeature(f)
			if err != nil {
				return err
			}
			if item != nil {
				s.tree.Insert(item)
			}
		}
		s.features = append(s.features, f)
	}
	return nil
}

// BuildIndex builds the R-tree. Features with empty geometries are left out
// of the index.
func (s *MemorySource) BuildIndex() error {
	tree := rtreego.NewTree(2, 25, 50)
	for _, f := range s.features {
		item, err := newIndexedFeature(f)
		if err != nil {
			return err
		}
		if item != nil {
			tree.Insert(item)
		}
	}
	s.tree = tree
	return nil
}

func (s *MemorySource) Projection() Projection { return s.proj }

func (s *MemorySource) Count() (int, error) { return len(s.features), nil }

func (s *MemorySource) Features() iter.Seq2[*Feature, error] {
	return func(yield func(*Feature, error) bool) {
		for _, f := range s.features {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// Indexed reports whether BuildIndex has been called.
func (s *MemorySource) Indexed() bool { return s.tree != nil }

func (s *MemorySource) CountIn(b orb.Bound) (int, error) {
	return len(s.search(b)), nil
}

func (s *MemorySource) Query(b orb.Bound) iter.Seq2[*Feature, error] {
	hits := s.search(b)
	return func(yield func(*Feature, error) bool) {
		for _, h := range hits {
			if !yield(h.(*indexedFeature).feature, nil) {
				return
			}
		}
	}
}

func (s *MemorySource) search(b orb.Bound) []rtreego.Spatial {
	if s.tree == nil {
		return nil
	}
	return s.tree.SearchIntersect(boundToRect(b))
}

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature *Feature
	rect    rtreego.Rect
}

func (f *indexedFeature) Bounds() rtreego.Rect { return f.rect }

// newIndexedFeature reads the feature envelope from the blob header, or
// builds it from the geometry. It returns nil for empty geometries.
func newIndexedFeature(f *Feature) (*indexedFeature, error) {
	blob, err := geopackage.Decode(f.Geometry)
	if err != nil {
		return nil, err
	}
	env := blob.Envelope()
	if env == nil {
		env = blob.BuildEnvelope()
	}
	if env == nil {
		return nil, nil
	}
	return &indexedFeature{feature: f, rect: boundToRect(env.Bound())}, nil
}

// boundToRect converts a bound to an R-tree rectangle. The tree needs
// non-zero extents, so points get a tiny one.
func boundToRect(b orb.Bound) rtreego.Rect {
	const epsilon = 1e-9
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	return rect
}
