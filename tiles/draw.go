package tiles

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	geopackage "github.com/tingold/orb-geopackage"
)

// tileDrawer holds the per tile state of one render.
type tileDrawer struct {
	r      *Renderer
	req    *TileRequest
	canvas *LayeredCanvas
	query  orb.Bound

	toTile       orb.Projection // source to request projection
	toMercator   orb.Projection // source to web mercator
	fromMercator orb.Projection // web mercator to request projection
	tolerance    float64
}

func (r *Renderer) newTileDrawer(req *TileRequest, canvas *LayeredCanvas) *tileDrawer {
	src := r.source.Projection()
	d := &tileDrawer{
		r:            r,
		req:          req,
		canvas:       canvas,
		query:        r.QueryBound(req),
		toTile:       src.Transform(req.Projection),
		toMercator:   src.Transform(EPSG3857),
		fromMercator: EPSG3857.Transform(req.Projection),
	}
	if r.cfg.Simplify {
		d.tolerance = req.Tolerance()
	}
	return d
}

// drawFeature decodes, filters, styles and draws one feature.
func (d *tileDrawer) drawFeature(f *Feature) (bool, error) {
	cg, err := d.r.geometry(f)
	if err != nil || cg == nil {
		return false, err
	}
	if !cg.boundIn(d.req.Projection).Intersects(d.query) {
		return false, nil
	}

	fs := ResolveStyle(d.r.styles, f.ID, cg.geometry.Type())
	return d.drawGeometry(cg.geometry, fs)
}

func (d *tileDrawer) drawGeometry(g geopackage.Geometry, fs *FeatureStyle) (bool, error) {
	switch v := g.(type) {
	case *geopackage.Point:
		return d.drawPoint(v, fs)

	case *geopackage.MultiPoint:
		drawn := false
		for _, p := range v.Points {
			ok, err := d.drawPoint(p, fs)
			if err != nil {
				return drawn, err
			}
			drawn = drawn || ok
		}
		return drawn, nil

	case *geopackage.LineString:
		return d.strokeLine(fs, func(s Surface) (bool, error) {
			return d.addLine(s, v.Points, true), nil
		})

	case *geopackage.CircularString:
		return d.strokeLine(fs, func(s Surface) (bool, error) {
			return d.addCircularString(s, v.Points, true)
		})

	case *geopackage.CompoundCurve:
		return d.strokeLine(fs, func(s Surface) (bool, error) {
			return d.addCompoundCurve(s, v)
		})

	case *geopackage.MultiLineString:
		drawn := false
		for _, ls := range v.LineStrings {
			ok, err := d.drawGeometry(ls, fs)
			if err != nil {
				return drawn, err
			}
			drawn = drawn || ok
		}
		return drawn, nil

	case *geopackage.Polygon:
		return d.drawPolygon(v.Rings, fs), nil

	case *geopackage.Triangle:
		return d.drawPolygon(v.Rings, fs), nil

	case *geopackage.MultiPolygon:
		return d.drawPolygons(v.Polygons, fs), nil

	case *geopackage.PolyhedralSurface:
		return d.drawPolygons(v.Polygons, fs), nil

	case *geopackage.TIN:
		drawn := false
		for _, t := range v.Triangles {
			drawn = d.drawPolygon(t.Rings, fs) || drawn
		}
		return drawn, nil

	case *geopackage.GeometryCollection:
		drawn := false
		for _, child := range v.Geometries {
			ok, err := d.drawGeometry(child, fs)
			if err != nil {
				return drawn, err
			}
			drawn = drawn || ok
		}
		return drawn, nil
	}

	if g == nil {
		return false, geopackage.ErrNilGeometry
	}
	return false, &geopackage.UnsupportedTypeError{Code: uint32(g.Type())}
}

// pixel converts a point in the source projection to pixel space.
func (d *tileDrawer) pixel(p orb.Point) orb.Point {
	return d.tilePixel(d.toTile(p))
}

// tilePixel converts a point in the request projection to pixel space.
func (d *tileDrawer) tilePixel(p orb.Point) orb.Point {
	b := d.req.Bound
	return orb.Point{
		PixelFromLongitude(d.req.Width, b, p[0]),
		PixelFromLatitude(d.req.Height, b, p[1]),
	}
}

// project converts coordinates to pixel space. With simplification on, the
// vertices are reduced in web mercator meters first.
func (d *tileDrawer) project(cs []geopackage.Coord) orb.LineString {
	ls := make(orb.LineString, 0, len(cs))
	for _, c := range cs {
		ls = append(ls, orb.Point{c.X, c.Y})
	}

	if d.tolerance <= 0 || len(ls) < 3 {
		for i, p := range ls {
			ls[i] = d.pixel(p)
		}
		return ls
	}

	for i, p := range ls {
		ls[i] = d.toMercator(p)
	}
	ls = simplify.Radial(planar.Distance, d.tolerance).LineString(ls)
	ls = simplify.DouglasPeucker(d.tolerance).LineString(ls)
	for i, p := range ls {
		ls[i] = d.tilePixel(d.fromMercator(p))
	}
	return ls
}

func (d *tileDrawer) drawPoint(p *geopackage.Point, fs *FeatureStyle) (bool, error) {
	if p.Empty {
		return false, nil
	}
	px := d.pixel(orb.Point{p.Coord.X, p.Coord.Y})
	w, h := float64(d.req.Width), float64(d.req.Height)

	if fs.UseIcon() {
		icon, err := d.r.icon(fs.Icon)
		if err != nil {
			return false, err
		}
		left := px[0] - icon.AnchorU*icon.Width
		top := px[1] - icon.AnchorV*icon.Height
		if left+icon.Width < 0 || top+icon.Height < 0 || left > w || top > h {
			return false, nil
		}
		d.canvas.Layer(LayerIcon).DrawImage(icon.Image, int(math.Round(left)), int(math.Round(top)))
		return true, nil
	}

	radius := d.r.pointRadius(fs)
	if px[0]+radius < 0 || px[1]+radius < 0 || px[0]-radius > w || px[1]-radius > h {
		return false, nil
	}
	paint := d.r.pointPaint(fs)
	s := d.canvas.Layer(LayerPoint)
	s.SetColor(paint.Color)
	s.DrawCircle(px[0], px[1], radius)
	s.Fill()
	return true, nil
}

// strokeLine builds a path with add and strokes it with the line paint.
func (d *tileDrawer) strokeLine(fs *FeatureStyle, add func(Surface) (bool, error)) (bool, error) {
	s := d.canvas.Layer(LayerLine)
	ok, err := add(s)
	if err != nil || !ok {
		s.ClearPath()
		return false, err
	}
	paint := d.r.linePaint(fs)
	s.SetColor(paint.Color)
	s.SetLineWidth(paint.StrokeWidth)
	s.Stroke()
	return true, nil
}

// addLine appends the projected line to the current path. It starts a new
// sub path when move is set and continues the current one otherwise.
func (d *tileDrawer) addLine(s Surface, cs []geopackage.Coord, move bool) bool {
	pts := d.project(cs)
	if len(pts) < 2 {
		return false
	}
	for i, p := range pts {
		if i == 0 && move {
			s.MoveTo(p[0], p[1])
		} else {
			s.LineTo(p[0], p[1])
		}
	}
	return true
}

func (d *tileDrawer) addCompoundCurve(s Surface, cc *geopackage.CompoundCurve) (bool, error) {
	drawn := false
	for _, c := range cc.Curves {
		var ok bool
		var err error
		switch seg := c.(type) {
		case *geopackage.LineString:
			ok = d.addLine(s, seg.Points, !drawn)
		case *geopackage.CircularString:
			ok, err = d.addCircularString(s, seg.Points, !drawn)
		default:
			err = &geopackage.UnsupportedTypeError{Code: uint32(c.Type())}
		}
		if err != nil {
			return false, err
		}
		drawn = drawn || ok
	}
	return drawn, nil
}

// addCircularString appends the arcs defined by consecutive point triples.
// Collinear triples and triples with coincident points become straight
// segments.
func (d *tileDrawer) addCircularString(s Surface, cs []geopackage.Coord, move bool) (bool, error) {
	if len(cs) < 3 || len(cs)%2 == 0 {
		return false, ErrInvalidCircularString
	}
	pts := make([]orb.Point, len(cs))
	for i, c := range cs {
		pts[i] = d.pixel(orb.Point{c.X, c.Y})
	}

	if move {
		s.MoveTo(pts[0][0], pts[0][1])
	} else {
		s.LineTo(pts[0][0], pts[0][1])
	}
	for i := 0; i+2 < len(pts); i += 2 {
		p0, p1, p2 := pts[i], pts[i+1], pts[i+2]
		cx, cy, radius, ok := circumcircle(p0, p1, p2)
		if !ok {
			s.LineTo(p1[0], p1[1])
			s.LineTo(p2[0], p2[1])
			continue
		}
		start, end := arcAngles(cx, cy, p0, p1, p2)
		s.Arc(cx, cy, radius, start, end)
	}
	return true, nil
}

// circumcircle returns the circle through three points. ok is false when
// the points are collinear or two of them coincide.
func circumcircle(p0, p1, p2 orb.Point) (cx, cy, r float64, ok bool) {
	if p0 == p1 || p1 == p2 || p0 == p2 {
		return 0, 0, 0, false
	}
	x0, y0 := p0[0], p0[1]
	x1, y1 := p1[0], p1[1]
	x2, y2 := p2[0], p2[1]

	det := 2 * (x0*(y1-y2) + x1*(y2-y0) + x2*(y0-y1))
	if math.Abs(det) < 1e-9 {
		return 0, 0, 0, false
	}
	s0 := x0*x0 + y0*y0
	s1 := x1*x1 + y1*y1
	s2 := x2*x2 + y2*y2
	cx = (s0*(y1-y2) + s1*(y2-y0) + s2*(y0-y1)) / det
	cy = (s0*(x2-x1) + s1*(x0-x2) + s2*(x1-x0)) / det
	return cx, cy, math.Hypot(x0-cx, y0-cy), true
}

// arcAngles returns start and end angles around (cx, cy) for the arc from
// p0 to p2 that passes through p1. The end angle may be below the start for
// an arc swept in the negative direction.
func arcAngles(cx, cy float64, p0, p1, p2 orb.Point) (float64, float64) {
	a0 := math.Atan2(p0[1]-cy, p0[0]-cx)
	a1 := math.Atan2(p1[1]-cy, p1[0]-cx)
	a2 := math.Atan2(p2[1]-cy, p2[0]-cx)

	toMid := normalizeAngle(a1 - a0)
	toEnd := normalizeAngle(a2 - a0)
	if toMid < toEnd {
		return a0, a0 + toEnd
	}
	return a0, a0 - (2*math.Pi - toEnd)
}

// normalizeAngle maps a to [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func (d *tileDrawer) drawPolygons(polys []*geopackage.Polygon, fs *FeatureStyle) bool {
	drawn := false
	for _, p := range polys {
		drawn = d.drawPolygon(p.Rings, fs) || drawn
	}
	return drawn
}

// drawPolygon fills then strokes one polygon. The exterior ring is wound
// clockwise and holes counter-clockwise in pixel space so the non-zero fill
// rule cuts the holes out.
func (d *tileDrawer) drawPolygon(rings [][]geopackage.Coord, fs *FeatureStyle) bool {
	paths := make([]orb.Ring, 0, len(rings))
	for i, r := range rings {
		ring := orb.Ring(d.project(r))
		if len(ring) < 3 {
			if i == 0 {
				return false
			}
			continue
		}
		want := orb.CCW
		if i == 0 {
			want = orb.CW
		}
		if ring.Orientation() != want {
			ring.Reverse()
		}
		paths = append(paths, ring)
	}
	if len(paths) == 0 {
		return false
	}

	s := d.canvas.Layer(LayerPolygon)
	for _, ring := range paths {
		s.MoveTo(ring[0][0], ring[0][1])
		for _, p := range ring[1:] {
			s.LineTo(p[0], p[1])
		}
		s.ClosePath()
	}

	if fill := d.r.polygonFillPaint(fs); fill != nil {
		s.SetColor(fill.Color)
		s.FillPreserve()
	}
	stroke := d.r.polygonPaint(fs)
	s.SetColor(stroke.Color)
	s.SetLineWidth(stroke.StrokeWidth)
	s.Stroke()
	return true
}
