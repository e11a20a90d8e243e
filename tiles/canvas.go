package tiles

import (
	"image"

	"github.com/tingold/orb-geopackage/lru"
)

// Layer is one of the stacked drawing surfaces of a LayeredCanvas.
type Layer int

// Layers in bottom to top compositing order.
const (
	LayerPolygon Layer = iota
	LayerLine
	LayerPoint
	LayerIcon

	numLayers
)

func (l Layer) String() string {
	switch l {
	case LayerPolygon:
		return "polygon"
	case LayerLine:
		return "line"
	case LayerPoint:
		return "point"
	case LayerIcon:
		return "icon"
	}
	return "unknown"
}

// LayeredCanvas holds one lazily created surface per layer so that icons
// always end up above points, points above lines and lines above polygon
// fills, whatever order features are drawn in.
type LayeredCanvas struct {
	width, height int
	newSurface    SurfaceFactory
	layers        [numLayers]Surface
}

// NewLayeredCanvas creates an empty canvas. A nil factory uses NewGGSurface.
func NewLayeredCanvas(width, height int, factory SurfaceFactory) *LayeredCanvas {
	if factory == nil {
		factory = NewGGSurface
	}
	return &LayeredCanvas{width: width, height: height, newSurface: factory}
}

// Width returns the canvas width in pixels.
func (c *LayeredCanvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *LayeredCanvas) Height() int { return c.height }

// Layer returns the surface for l, creating it on first use.
func (c *LayeredCanvas) Layer(l Layer) Surface {
	if c.layers[l] == nil {
		c.layers[l] = c.newSurface(c.width, c.height)
	}
	return c.layers[l]
}

// Drawn reports whether any layer has been created.
func (c *LayeredCanvas) Drawn() bool {
	for _, s := range c.layers {
		if s != nil {
			return true
		}
	}
	return false
}

// CreateTile merges the layers bottom to top into a single image and
// disposes them. It returns nil when no layer exists or every merged pixel
// is fully transparent.
func (c *LayeredCanvas) CreateTile() image.Image {
	var merged Surface
	for i, s := range c.layers {
		if s == nil {
			continue
		}
		if merged == nil {
			merged = s
		} else {
			merged.DrawImage(s.Image(), 0, 0)
			dispose(s)
		}
		c.layers[i] = nil
	}
	if merged == nil {
		return nil
	}

	img := merged.Image()
	dispose(merged)
	if isTransparent(img) {
		return nil
	}
	return img
}

// Dispose releases every layer without compositing.
func (c *LayeredCanvas) Dispose() {
	for i, s := range c.layers {
		if s != nil {
			dispose(s)
			c.layers[i] = nil
		}
	}
}

func dispose(s Surface) {
	if d, ok := s.(lru.Disposer); ok {
		d.Dispose()
	}
}

// isTransparent reports whether every pixel of img has zero alpha.
func isTransparent(img image.Image) bool {
	if rgba, ok := img.(*image.RGBA); ok {
		for i := 3; i < len(rgba.Pix); i += 4 {
			if rgba.Pix[i] != 0 {
				return false
			}
		}
		return true
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				return false
			}
		}
	}
	return true
}
