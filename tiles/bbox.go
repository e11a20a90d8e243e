package tiles

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// DefaultTileSize is the default tile edge in pixels.
const DefaultTileSize = 256

// TileRequest describes one tile to render.
type TileRequest struct {
	X, Y uint32
	// Zoom is negative for requests built from an explicit bound.
	Zoom       int
	Bound      orb.Bound
	Projection Projection
	// Width and Height default to the renderer's configured tile size.
	Width, Height int
}

// NewTileRequest builds a web mercator request for the z/x/y tile.
func NewTileRequest(x, y uint32, z int) *TileRequest {
	return &TileRequest{
		X:          x,
		Y:          y,
		Zoom:       z,
		Bound:      TileBound(x, y, z, EPSG3857),
		Projection: EPSG3857,
	}
}

// NewBoundRequest builds a request for an explicit bound in proj.
func NewBoundRequest(b orb.Bound, proj Projection, width, height int) *TileRequest {
	return &TileRequest{
		Zoom:       -1,
		Bound:      b,
		Projection: proj,
		Width:      width,
		Height:     height,
	}
}

// Tolerance is the simplification tolerance of the request in web mercator
// meters per pixel.
func (r *TileRequest) Tolerance() float64 {
	if r.Zoom >= 0 {
		return ToleranceDistance(r.Zoom, max(r.Width, r.Height))
	}
	m := r.Projection.TransformBound(r.Bound, EPSG3857)
	px := max(r.Width, r.Height)
	if px <= 0 {
		return 0
	}
	return math.Max(m.Max[0]-m.Min[0], m.Max[1]-m.Min[1]) / float64(px)
}

// TileBound returns the bound of the z/x/y tile in proj.
func TileBound(x, y uint32, z int, proj Projection) orb.Bound {
	b := maptile.New(x, y, maptile.Zoom(z)).Bound()
	return EPSG4326.TransformBound(b, proj)
}

// ToleranceDistance is the width of one pixel in web mercator meters for a
// tile of tilePixels at zoom.
func ToleranceDistance(zoom, tilePixels int) float64 {
	if tilePixels <= 0 {
		tilePixels = DefaultTileSize
	}
	tileSize := 2 * MercatorLimit / math.Exp2(float64(zoom))
	return tileSize / float64(tilePixels)
}

// LongitudeFromPixel returns the x coordinate at pixel offset px across an
// image width pixels wide covering b.
func LongitudeFromPixel(width int, b orb.Bound, px float64) float64 {
	return b.Min[0] + px/float64(width)*(b.Max[0]-b.Min[0])
}

// LatitudeFromPixel returns the y coordinate at pixel offset py down an image
// height pixels tall covering b.
func LatitudeFromPixel(height int, b orb.Bound, py float64) float64 {
	return b.Max[1] - py/float64(height)*(b.Max[1]-b.Min[1])
}

// PixelFromLongitude is the inverse of LongitudeFromPixel.
func PixelFromLongitude(width int, b orb.Bound, x float64) float64 {
	return float64(width) * (x - b.Min[0]) / (b.Max[0] - b.Min[0])
}

// PixelFromLatitude is the inverse of LatitudeFromPixel.
func PixelFromLatitude(height int, b orb.Bound, y float64) float64 {
	return float64(height) * (b.Max[1] - y) / (b.Max[1] - b.Min[1])
}

// ExpandBound grows b outward by the given pixel overlaps, for an image of
// width x height pixels, and clamps the result to the world bound of proj.
// The result always contains b clamped to the world.
func ExpandBound(b orb.Bound, proj Projection, width, height int, widthOverlap, heightOverlap float64) orb.Bound {
	expanded := orb.Bound{
		Min: orb.Point{
			LongitudeFromPixel(width, b, -widthOverlap),
			LatitudeFromPixel(height, b, float64(height)+heightOverlap),
		},
		Max: orb.Point{
			LongitudeFromPixel(width, b, float64(width)+widthOverlap),
			LatitudeFromPixel(height, b, -heightOverlap),
		},
	}
	return proj.Clamp(expanded.Union(b))
}
