package tiles

import (
	"image/color"
	"math"
)

// DrawPurpose is the role a paint serves; it is half of the paint cache key.
type DrawPurpose int

// Draw purposes.
const (
	DrawCircle DrawPurpose = iota
	DrawStroke
	DrawFill
)

// Paint is a resolved color with a stroke width in pixels.
type Paint struct {
	Color       color.NRGBA
	StrokeWidth float64
}

type paintKey struct {
	styleID int64
	purpose DrawPurpose
}

// stylePaint returns the cached paint of style for purpose, building it on
// a miss. It returns nil for a fill paint of a style without a fill color.
func (r *Renderer) stylePaint(style *StyleRow, purpose DrawPurpose) *Paint {
	key := paintKey{styleID: style.ID, purpose: purpose}
	if p, ok := r.paints.Get(key); ok {
		return p
	}

	var p *Paint
	switch purpose {
	case DrawCircle:
		p = &Paint{Color: colorOrDefault(style.Color)}
	case DrawStroke:
		p = &Paint{Color: colorOrDefault(style.Color), StrokeWidth: r.cfg.Scale * style.WidthOrDefault()}
	case DrawFill:
		if style.FillColor == nil {
			return nil
		}
		p = &Paint{Color: style.FillColor.NRGBA(), StrokeWidth: r.cfg.Scale * style.WidthOrDefault()}
	}
	r.paints.Put(key, p)
	return p
}

func colorOrDefault(c *Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{A: 0xFF}
	}
	return c.NRGBA()
}

// featurePaint returns the style paint when the feature style has a stroke
// color, nil otherwise.
func (r *Renderer) featurePaint(fs *FeatureStyle, purpose DrawPurpose) *Paint {
	if fs == nil || !fs.Style.HasColor() {
		return nil
	}
	return r.stylePaint(fs.Style, purpose)
}

func (r *Renderer) pointPaint(fs *FeatureStyle) *Paint {
	if p := r.featurePaint(fs, DrawCircle); p != nil {
		return p
	}
	return &Paint{Color: r.cfg.PointColor.NRGBA()}
}

func (r *Renderer) linePaint(fs *FeatureStyle) *Paint {
	if p := r.featurePaint(fs, DrawStroke); p != nil {
		return p
	}
	return &Paint{Color: r.cfg.LineColor.NRGBA(), StrokeWidth: r.cfg.Scale * r.cfg.LineStrokeWidth}
}

func (r *Renderer) polygonPaint(fs *FeatureStyle) *Paint {
	if p := r.featurePaint(fs, DrawStroke); p != nil {
		return p
	}
	return &Paint{Color: r.cfg.PolygonColor.NRGBA(), StrokeWidth: r.cfg.Scale * r.cfg.PolygonStrokeWidth}
}

// polygonFillPaint uses the style fill color when set. A style with a stroke
// color but no fill color draws no fill; otherwise the default fill applies
// when polygon fill is enabled.
func (r *Renderer) polygonFillPaint(fs *FeatureStyle) *Paint {
	hasStyleColor := false
	if fs != nil && fs.Style != nil {
		if fs.Style.FillColor != nil {
			return r.stylePaint(fs.Style, DrawFill)
		}
		hasStyleColor = fs.Style.HasColor()
	}
	if !hasStyleColor && r.cfg.FillPolygon {
		return &Paint{Color: r.cfg.PolygonFillColor.NRGBA()}
	}
	return nil
}

// pointRadius is half the style width, or the configured radius without a
// style, scaled.
func (r *Renderer) pointRadius(fs *FeatureStyle) float64 {
	if fs != nil && fs.Style != nil {
		return r.cfg.Scale * fs.Style.WidthOrDefault() / 2
	}
	return r.cfg.Scale * r.cfg.PointRadius
}

// calculateDrawOverlap sets the pixel distance features may reach past the
// tile edge: the largest of the point radius, the icon extents from their
// anchors, and half of every stroke width.
func (r *Renderer) calculateDrawOverlap() {
	s := r.cfg.Scale
	w := s * r.cfg.PointRadius
	h := w

	for _, half := range []float64{s * r.cfg.LineStrokeWidth / 2, s * r.cfg.PolygonStrokeWidth / 2} {
		w, h = math.Max(w, half), math.Max(h, half)
	}

	if r.styles != nil {
		for _, style := range r.styles.Styles() {
			half := s * style.WidthOrDefault() / 2
			w, h = math.Max(w, half), math.Max(h, half)
		}
		for _, row := range r.styles.Icons() {
			icon, err := r.icon(row)
			if err != nil {
				r.logger.Warn("skipping icon in overlap", "id", row.ID, "err", err)
				continue
			}
			w = math.Max(w, icon.Width*math.Max(icon.AnchorU, 1-icon.AnchorU))
			h = math.Max(h, icon.Height*math.Max(icon.AnchorV, 1-icon.AnchorV))
		}
	}

	r.widthOverlap, r.heightOverlap = math.Ceil(w), math.Ceil(h)
}

// paintChanged drops cached paints and recomputes the overlap after a
// setting that affects drawing changed.
func (r *Renderer) paintChanged() {
	r.paints.Clear()
	r.calculateDrawOverlap()
}

// SetScale changes the uniform scale applied to strokes, icons and points.
// Cached icons are rebuilt at the new size.
func (r *Renderer) SetScale(scale float64) error {
	if scale <= 0 {
		return &ValidationError{Field: "scale", Value: scale, Range: "(0,inf)"}
	}
	r.cfg.Scale = scale
	r.icons.Clear()
	r.paintChanged()
	return nil
}

// SetPointRadius changes the default point radius.
func (r *Renderer) SetPointRadius(radius float64) {
	r.cfg.PointRadius = radius
	r.paintChanged()
}

// SetPointColor changes the default point color.
func (r *Renderer) SetPointColor(c Color) {
	r.cfg.PointColor = c
	r.paintChanged()
}

// SetLineStrokeWidth changes the default line stroke width.
func (r *Renderer) SetLineStrokeWidth(w float64) {
	r.cfg.LineStrokeWidth = w
	r.paintChanged()
}

// SetLineColor changes the default line color.
func (r *Renderer) SetLineColor(c Color) {
	r.cfg.LineColor = c
	r.paintChanged()
}

// SetPolygonStrokeWidth changes the default polygon stroke width.
func (r *Renderer) SetPolygonStrokeWidth(w float64) {
	r.cfg.PolygonStrokeWidth = w
	r.paintChanged()
}

// SetPolygonColor changes the default polygon stroke color.
func (r *Renderer) SetPolygonColor(c Color) {
	r.cfg.PolygonColor = c
	r.paintChanged()
}

// SetFillPolygon toggles the default polygon fill.
func (r *Renderer) SetFillPolygon(fill bool) {
	r.cfg.FillPolygon = fill
	r.paintChanged()
}

// SetPolygonFillColor changes the default polygon fill color.
func (r *Renderer) SetPolygonFillColor(c Color) {
	r.cfg.PolygonFillColor = c
	r.paintChanged()
}

// SetMaxFeaturesPerTile changes the per tile feature maximum; zero disables
// it.
func (r *Renderer) SetMaxFeaturesPerTile(n int) {
	r.cfg.MaxFeaturesPerTile = n
}

// SetSimplify toggles geometry simplification.
func (r *Renderer) SetSimplify(on bool) {
	r.cfg.Simplify = on
}

// SetCacheGeometries toggles the geometry cache. Turning it off clears it.
func (r *Renderer) SetCacheGeometries(on bool) {
	r.cfg.CacheGeometries = on
	if !on {
		r.geometries.Clear()
	}
}
