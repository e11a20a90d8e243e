// Package tiles renders feature tables into raster map tiles.
//
// A Renderer queries the candidate features of a tile, through a spatial
// index when the source has one, decodes their geometry blobs, resolves
// their styles and draws them onto a LayeredCanvas which is composited and
// encoded as PNG or JPEG.
//
// A Renderer is not safe for concurrent use; its icon, paint and geometry
// caches are unsynchronized.
package tiles

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/paulmach/orb"
	geopackage "github.com/tingold/orb-geopackage"
	"github.com/tingold/orb-geopackage/lru"
)

// FallbackRenderer draws tiles that hold more features than the configured
// maximum. A nil image means no tile.
type FallbackRenderer interface {
	DrawTile(req *TileRequest, featureCount int) (image.Image, error)
}

// Renderer draws the features of one table into tiles.
type Renderer struct {
	source FeatureSource
	styles StyleMappings
	cfg    Config

	logger     *log.Logger
	newSurface SurfaceFactory
	fallback   FallbackRenderer

	icons      *lru.Cache[int64, *Icon]
	paints     *lru.Cache[paintKey, *Paint]
	geometries *lru.Cache[int64, *cachedGeometry]

	widthOverlap  float64
	heightOverlap float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for skipped features and tile outcomes.
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithSurfaceFactory replaces the gg backed drawing surface.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(r *Renderer) {
		r.newSurface = f
	}
}

// WithFallback sets the renderer used for tiles over the feature maximum.
func WithFallback(f FallbackRenderer) Option {
	return func(r *Renderer) {
		r.fallback = f
	}
}

// NewRenderer creates a renderer for source. styles may be nil, in which
// case every feature is drawn with the configured default paints. A nil cfg
// uses DefaultConfig.
func NewRenderer(source FeatureSource, styles StyleMappings, cfg *Config, opts ...Option) (*Renderer, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p := source.Projection(); p != EPSG4326 && p != EPSG3857 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProjection, p)
	}

	r := &Renderer{
		source:     source,
		styles:     styles,
		cfg:        *cfg,
		newSurface: NewGGSurface,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	r.icons = lru.New[int64, *Icon](r.cfg.IconCacheSize)
	r.paints = lru.New[paintKey, *Paint](r.cfg.PaintCacheSize)
	r.geometries = lru.New[int64, *cachedGeometry](r.cfg.GeometryCacheSize)

	r.calculateDrawOverlap()
	return r, nil
}

// Config returns a copy of the current settings.
func (r *Renderer) Config() Config { return r.cfg }

// Overlap returns the pixel distance the query box is widened by.
func (r *Renderer) Overlap() (width, height float64) {
	return r.widthOverlap, r.heightOverlap
}

// RenderTile draws req and returns the encoded image. It returns nil bytes
// and a nil error when the tile has no features or nothing visible.
func (r *Renderer) RenderTile(req *TileRequest) ([]byte, error) {
	img, err := r.renderImage(r.normalize(req))
	if err != nil || img == nil {
		return nil, err
	}
	return r.encode(img)
}

// RenderImage is RenderTile without the final encoding.
func (r *Renderer) RenderImage(req *TileRequest) (image.Image, error) {
	return r.renderImage(r.normalize(req))
}

// DrawTile draws req into a caller supplied canvas and reports whether
// anything was drawn. The canvas is neither composited nor disposed. Tiles
// over the feature maximum are not drawn.
func (r *Renderer) DrawTile(req *TileRequest, canvas *LayeredCanvas) (bool, error) {
	req = r.normalize(req)
	count, features, err := r.candidates(req)
	if err != nil || count == 0 {
		return false, err
	}
	if r.overThreshold(count) {
		r.logger.Debug("tile over feature maximum", "count", count, "max", r.cfg.MaxFeaturesPerTile)
		return false, nil
	}
	return r.drawFeatures(req, features, canvas)
}

// normalize fills the request size from the config.
func (r *Renderer) normalize(req *TileRequest) *TileRequest {
	n := *req
	if n.Width <= 0 {
		n.Width = r.cfg.TileWidth
	}
	if n.Height <= 0 {
		n.Height = r.cfg.TileHeight
	}
	if n.Projection == 0 {
		n.Projection = EPSG3857
	}
	return &n
}

func (r *Renderer) renderImage(req *TileRequest) (image.Image, error) {
	count, features, err := r.candidates(req)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		r.logger.Debug("no features in tile", "z", req.Zoom, "x", req.X, "y", req.Y)
		return nil, nil
	}
	if r.overThreshold(count) {
		r.logger.Debug("tile over feature maximum", "count", count, "max", r.cfg.MaxFeaturesPerTile)
		if r.fallback == nil {
			return nil, nil
		}
		return r.fallback.DrawTile(req, count)
	}

	canvas := NewLayeredCanvas(req.Width, req.Height, r.newSurface)
	drawn, err := r.drawFeatures(req, features, canvas)
	if err != nil || !drawn {
		canvas.Dispose()
		return nil, err
	}
	img := canvas.CreateTile()
	if img == nil {
		r.logger.Debug("tile fully transparent", "z", req.Zoom, "x", req.X, "y", req.Y)
	}
	return img, nil
}

func (r *Renderer) overThreshold(count int) bool {
	return r.cfg.MaxFeaturesPerTile > 0 && count > r.cfg.MaxFeaturesPerTile
}

// QueryBound is the bound of req widened by the draw overlap and buffer, in
// the request projection.
func (r *Renderer) QueryBound(req *TileRequest) orb.Bound {
	req = r.normalize(req)
	wo := r.widthOverlap + r.cfg.BufferPercentage*float64(req.Width)
	ho := r.heightOverlap + r.cfg.BufferPercentage*float64(req.Height)
	return ExpandBound(req.Bound, req.Projection, req.Width, req.Height, wo, ho)
}

// candidates counts and iterates the features that may touch req, through
// the spatial index when there is one and a full scan otherwise.
func (r *Renderer) candidates(req *TileRequest) (int, iter.Seq2[*Feature, error], error) {
	query := req.Projection.TransformBound(r.QueryBound(req), r.source.Projection())

	if idx, ok := r.source.(SpatialIndex); ok && idx.Indexed() {
		count, err := idx.CountIn(query)
		if err != nil {
			return 0, nil, err
		}
		return count, idx.Query(query), nil
	}

	r.logger.Debug("no spatial index, scanning all features")
	count, err := r.source.Count()
	if err != nil {
		return 0, nil, err
	}
	return count, r.source.Features(), nil
}

// drawFeatures draws every feature, skipping the ones that fail to read,
// decode or draw.
func (r *Renderer) drawFeatures(req *TileRequest, features iter.Seq2[*Feature, error], canvas *LayeredCanvas) (bool, error) {
	d := r.newTileDrawer(req, canvas)

	drawn := false
	for f, err := range features {
		var ferr *FeatureError
		if errors.As(err, &ferr) {
			r.logger.Warn("skipping feature", "id", ferr.ID, "err", ferr.Err)
			continue
		}
		if err != nil {
			return false, err
		}
		ok, err := d.drawFeature(f)
		if err != nil {
			r.logger.Warn("skipping feature", "id", f.ID, "err", err)
			continue
		}
		drawn = drawn || ok
	}
	return drawn, nil
}

func (r *Renderer) encode(img image.Image) ([]byte, error) {
	format, err := r.cfg.imageFormat()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cachedGeometry is a decoded geometry with its source bound and that bound
// converted to the projection it was last requested in.
type cachedGeometry struct {
	geometry geopackage.Geometry
	srcBound orb.Bound
	srcProj  Projection
	bound    orb.Bound
	proj     Projection
}

// geometry returns the decoded geometry of f, nil when it is empty.
func (r *Renderer) geometry(f *Feature) (*cachedGeometry, error) {
	if r.cfg.CacheGeometries {
		if cg, ok := r.geometries.Get(f.ID); ok {
			return cg, nil
		}
	}

	blob, err := geopackage.Decode(f.Geometry)
	if err != nil {
		return nil, err
	}
	g := blob.Geometry()
	if g == nil || g.IsEmpty() {
		return nil, nil
	}
	env := geopackage.BuildEnvelope(g)
	if env == nil {
		return nil, nil
	}

	b, proj := env.Bound(), r.source.Projection()
	cg := &cachedGeometry{geometry: g, srcBound: b, srcProj: proj, bound: b, proj: proj}
	if r.cfg.CacheGeometries {
		r.geometries.Put(f.ID, cg)
	}
	return cg, nil
}

// boundIn returns the cached bound converted to proj, updating the memo.
func (cg *cachedGeometry) boundIn(proj Projection) orb.Bound {
	if cg.proj != proj {
		cg.bound = cg.srcProj.TransformBound(cg.srcBound, proj)
		cg.proj = proj
	}
	return cg.bound
}

// ResizeIconCache changes the icon cache capacity.
func (r *Renderer) ResizeIconCache(n int) { r.icons.Resize(n) }

// ResizePaintCache changes the paint cache capacity.
func (r *Renderer) ResizePaintCache(n int) { r.paints.Resize(n) }

// ResizeGeometryCache changes the geometry cache capacity.
func (r *Renderer) ResizeGeometryCache(n int) { r.geometries.Resize(n) }

// ClearIconCache empties the icon cache.
func (r *Renderer) ClearIconCache() { r.icons.Clear() }

// ClearPaintCache empties the paint cache.
func (r *Renderer) ClearPaintCache() { r.paints.Clear() }

// ClearGeometryCache empties the geometry cache.
func (r *Renderer) ClearGeometryCache() { r.geometries.Clear() }

// ClearCaches empties all three caches.
func (r *Renderer) ClearCaches() {
	r.ClearIconCache()
	r.ClearPaintCache()
	r.ClearGeometryCache()
}
