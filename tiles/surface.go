package tiles

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Surface is the 2-D drawing capability tiles are rendered onto: path
// construction, stroke and fill with the non-zero winding rule, image
// blitting and text.
type Surface interface {
	Width() int
	Height() int

	SetColor(c color.Color)
	SetLineWidth(w float64)

	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Arc appends a circular arc around (cx, cy) from angle1 to angle2,
	// in radians, joined to the current point by a straight segment.
	Arc(cx, cy, r, angle1, angle2 float64)
	ClosePath()
	ClearPath()
	DrawCircle(x, y, r float64)

	Fill()
	FillPreserve()
	Stroke()

	// DrawImage draws img with its top left corner at (x, y).
	DrawImage(img image.Image, x, y int)
	// DrawString draws s anchored at (x, y); ax and ay are fractions of the
	// text extent.
	DrawString(s string, x, y, ax, ay float64)

	Image() image.Image
}

// SurfaceFactory creates a blank, fully transparent surface.
type SurfaceFactory func(width, height int) Surface

// GGSurface is a Surface backed by a gg context.
type GGSurface struct {
	dc *gg.Context
}

// NewGGSurface creates a transparent gg backed surface. It is the default
// SurfaceFactory.
func NewGGSurface(width, height int) Surface {
	dc := gg.NewContext(width, height)
	dc.SetFillRuleWinding()
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	return &GGSurface{dc: dc}
}

// Context exposes the underlying gg context.
func (s *GGSurface) Context() *gg.Context { return s.dc }

func (s *GGSurface) Width() int                    { return s.dc.Width() }
func (s *GGSurface) Height() int                   { return s.dc.Height() }
func (s *GGSurface) SetColor(c color.Color)        { s.dc.SetColor(c) }
func (s *GGSurface) SetLineWidth(w float64)        { s.dc.SetLineWidth(w) }
func (s *GGSurface) MoveTo(x, y float64)           { s.dc.MoveTo(x, y) }
func (s *GGSurface) LineTo(x, y float64)           { s.dc.LineTo(x, y) }
func (s *GGSurface) Arc(cx, cy, r, a1, a2 float64) { s.dc.DrawArc(cx, cy, r, a1, a2) }
func (s *GGSurface) ClosePath()                    { s.dc.ClosePath() }
func (s *GGSurface) ClearPath()                    { s.dc.ClearPath() }
func (s *GGSurface) DrawCircle(x, y, r float64)    { s.dc.DrawCircle(x, y, r) }
func (s *GGSurface) Fill()                         { s.dc.Fill() }
func (s *GGSurface) FillPreserve()                 { s.dc.FillPreserve() }
func (s *GGSurface) Stroke()                       { s.dc.Stroke() }
func (s *GGSurface) Image() image.Image            { return s.dc.Image() }

func (s *GGSurface) DrawImage(img image.Image, x, y int) {
	s.dc.DrawImage(img, x, y)
}

func (s *GGSurface) DrawString(str string, x, y, ax, ay float64) {
	s.dc.DrawStringAnchored(str, x, y, ax, ay)
}

// Dispose drops the context so its pixel buffer can be collected.
func (s *GGSurface) Dispose() {
	s.dc = nil
}
