package tiles

import (
	"image"
	"strconv"
)

// CountTile is a FallbackRenderer that draws the candidate feature count in
// the middle of a bordered tile instead of the features themselves.
type CountTile struct {
	BorderColor Color
	BorderWidth float64
	FillColor   Color
	TextColor   Color

	newSurface SurfaceFactory
}

// NewCountTile returns a count tile drawn on gg surfaces.
func NewCountTile() *CountTile {
	return &CountTile{
		BorderColor: MustColor("#505050FF"),
		BorderWidth: 2,
		FillColor:   MustColor("#50505020"),
		TextColor:   MustColor("#303030FF"),
		newSurface:  NewGGSurface,
	}
}

// WithSurfaceFactory returns a copy drawing on surfaces from f.
func (c *CountTile) WithSurfaceFactory(f SurfaceFactory) *CountTile {
	n := *c
	n.newSurface = f
	return &n
}

// DrawTile implements FallbackRenderer.
func (c *CountTile) DrawTile(req *TileRequest, featureCount int) (image.Image, error) {
	if featureCount <= 0 {
		return nil, nil
	}
	w, h := req.Width, req.Height
	if w <= 0 {
		w = DefaultTileSize
	}
	if h <= 0 {
		h = DefaultTileSize
	}

	factory := c.newSurface
	if factory == nil {
		factory = NewGGSurface
	}
	s := factory(w, h)
	defer dispose(s)

	inset := c.BorderWidth / 2
	fw, fh := float64(w), float64(h)
	s.MoveTo(inset, inset)
	s.LineTo(fw-inset, inset)
	s.LineTo(fw-inset, fh-inset)
	s.LineTo(inset, fh-inset)
	s.ClosePath()

	s.SetColor(c.FillColor.NRGBA())
	s.FillPreserve()
	s.SetColor(c.BorderColor.NRGBA())
	s.SetLineWidth(c.BorderWidth)
	s.Stroke()

	s.SetColor(c.TextColor.NRGBA())
	s.DrawString(strconv.Itoa(featureCount), fw/2, fh/2, 0.5, 0.5)

	return s.Image(), nil
}
