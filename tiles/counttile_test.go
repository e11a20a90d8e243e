package tiles

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestCountTile(t *testing.T) {
	rec := &recorder{}
	ct := NewCountTile().WithSurfaceFactory(rec.factory)

	req := NewTileRequest(0, 0, 0)
	img, err := ct.DrawTile(req, 1234)
	if err != nil || img == nil {
		t.Fatalf("DrawTile = %v, %v", img, err)
	}
	if len(rec.surfaces) != 1 {
		t.Fatalf("expected one surface, got %d", len(rec.surfaces))
	}

	s := rec.surfaces[0]
	if s.w != DefaultTileSize || s.h != DefaultTileSize {
		t.Errorf("expected default tile size, got %dx%d", s.w, s.h)
	}
	if len(s.texts) != 1 || s.texts[0] != "1234" {
		t.Errorf("expected the count drawn, got %v", s.texts)
	}
	if len(s.paths) != 2 || s.paths[0].op != "fill" || s.paths[1].op != "stroke" {
		t.Errorf("expected a filled and stroked border, got %+v", s.paths)
	}
	if !s.disposed {
		t.Error("expected surface disposed")
	}

	if img, _ := ct.DrawTile(req, 0); img != nil {
		t.Error("expected no tile for zero features")
	}
}

func TestCountTile_AsFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFeaturesPerTile = 1
	src := pointSource(t, true, orb.Point{1, 1}, orb.Point{2, 2})
	r := newTestRenderer(t, src, nil, cfg, WithFallback(NewCountTile()))

	img, err := r.RenderImage(NewTileRequest(0, 0, 0))
	if err != nil || img == nil {
		t.Fatalf("RenderImage = %v, %v", img, err)
	}
	// The border covers the tile edge.
	if _, _, _, a := img.At(0, 128).RGBA(); a == 0 {
		t.Error("expected border pixel")
	}
}
