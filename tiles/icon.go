package tiles

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Icon is a decoded icon scaled to its display size.
type Icon struct {
	Image   image.Image
	Width   float64
	Height  float64
	AnchorU float64
	AnchorV float64
}

// Dispose releases the raster.
func (i *Icon) Dispose() {
	i.Image = nil
}

// icon returns the cached raster of row, decoding and scaling it on a miss.
func (r *Renderer) icon(row *IconRow) (*Icon, error) {
	if ic, ok := r.icons.Get(row.ID); ok {
		return ic, nil
	}
	ic, err := r.decodeIcon(row)
	if err != nil {
		return nil, err
	}
	// A zero capacity cache would dispose the icon on insert.
	if r.icons.Capacity() > 0 {
		r.icons.Put(row.ID, ic)
	}
	return ic, nil
}

func (r *Renderer) decodeIcon(row *IconRow) (*Icon, error) {
	if err := row.Validate(); err != nil {
		return nil, err
	}
	if len(row.Data) == 0 {
		return nil, errors.New("tiles: icon has no image data")
	}

	img, err := imaging.Decode(bytes.NewReader(row.Data))
	if err != nil {
		return nil, fmt.Errorf("tiles: decode icon %d: %w", row.ID, err)
	}

	b := img.Bounds()
	w, h := row.DerivedDimensions(b.Dx(), b.Dy())
	w *= r.cfg.Scale
	h *= r.cfg.Scale

	pw, ph := int(math.Round(w)), int(math.Round(h))
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("tiles: icon %d scales to %dx%d", row.ID, pw, ph)
	}
	if pw != b.Dx() || ph != b.Dy() {
		img = imaging.Resize(img, pw, ph, imaging.Lanczos)
	}

	return &Icon{
		Image:   img,
		Width:   float64(pw),
		Height:  float64(ph),
		AnchorU: row.AnchorUOrDefault(),
		AnchorV: row.AnchorVOrDefault(),
	}, nil
}
