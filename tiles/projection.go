package tiles

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection identifies a supported coordinate reference system by its EPSG
// code.
type Projection int32

// Supported projections.
const (
	EPSG4326 Projection = 4326
	EPSG3857 Projection = 3857
)

// World limits of the web mercator pyramid.
const (
	MaxLatitude   = 85.0511287798066
	MercatorLimit = 20037508.342789244
)

// ProjectionForSRS maps a spatial reference system id to a Projection. The
// legacy 900913 code is accepted as web mercator.
func ProjectionForSRS(srsID int32) (Projection, error) {
	switch srsID {
	case 4326:
		return EPSG4326, nil
	case 3857, 900913:
		return EPSG3857, nil
	}
	return 0, fmt.Errorf("%w: srs %d", ErrUnsupportedProjection, srsID)
}

func (p Projection) String() string {
	return fmt.Sprintf("EPSG:%d", int32(p))
}

// WorldBound is the valid web mercator world expressed in p.
func (p Projection) WorldBound() orb.Bound {
	if p == EPSG3857 {
		return orb.Bound{
			Min: orb.Point{-MercatorLimit, -MercatorLimit},
			Max: orb.Point{MercatorLimit, MercatorLimit},
		}
	}
	return orb.Bound{
		Min: orb.Point{-180, -MaxLatitude},
		Max: orb.Point{180, MaxLatitude},
	}
}

// Clamp restricts b to the world bound of p.
func (p Projection) Clamp(b orb.Bound) orb.Bound {
	w := p.WorldBound()
	return orb.Bound{
		Min: orb.Point{math.Max(b.Min[0], w.Min[0]), math.Max(b.Min[1], w.Min[1])},
		Max: orb.Point{math.Min(b.Max[0], w.Max[0]), math.Min(b.Max[1], w.Max[1])},
	}
}

// Transform returns the point conversion from p to target.
func (p Projection) Transform(target Projection) orb.Projection {
	switch {
	case p == target:
		return identity
	case p == EPSG4326:
		return toMercator
	default:
		return project.Mercator.ToWGS84
	}
}

// TransformBound converts b from p to target. Both supported projections are
// axis separable, so the corners are enough.
func (p Projection) TransformBound(b orb.Bound, target Projection) orb.Bound {
	if p == target {
		return b
	}
	fn := p.Transform(target)
	return orb.Bound{Min: fn(b.Min), Max: fn(b.Max)}
}

func identity(p orb.Point) orb.Point { return p }

// toMercator clamps latitude before projecting so the poles stay finite.
func toMercator(p orb.Point) orb.Point {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p[1]))
	return project.WGS84.ToMercator(orb.Point{p[0], lat})
}
