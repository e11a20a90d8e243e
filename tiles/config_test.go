package tiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.TileWidth != 256 || cfg.TileHeight != 256 {
		t.Errorf("expected 256 tiles, got %dx%d", cfg.TileWidth, cfg.TileHeight)
	}
	if !cfg.FillPolygon || !cfg.Simplify || !cfg.CacheGeometries {
		t.Errorf("expected fill, simplify and geometry cache on: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.toml")
	data := `
tile_width = 512
tile_height = 512
scale = 2.0
format = "jpeg"
max_features_per_tile = 500
buffer_percentage = 0.1
line_color = "#FF000080"
fill_polygon = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.TileWidth != 512 || cfg.Scale != 2 || cfg.Format != "jpeg" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxFeaturesPerTile != 500 || cfg.BufferPercentage != 0.1 {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if cfg.LineColor.Hex() != "#FF000080" {
		t.Errorf("unexpected line color %s", cfg.LineColor)
	}
	if cfg.FillPolygon {
		t.Error("expected fill_polygon off")
	}
	// Unset keys keep their defaults.
	if cfg.PointRadius != 4 || cfg.GeometryCacheSize != 1000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"zero width", func(c *Config) { c.TileWidth = 0 }, "tile_width"},
		{"zero scale", func(c *Config) { c.Scale = 0 }, "scale"},
		{"buffer half", func(c *Config) { c.BufferPercentage = 0.5 }, "buffer_percentage"},
		{"negative buffer", func(c *Config) { c.BufferPercentage = -0.1 }, "buffer_percentage"},
		{"negative max", func(c *Config) { c.MaxFeaturesPerTile = -1 }, "max_features_per_tile"},
		{"negative radius", func(c *Config) { c.PointRadius = -1 }, "point_radius"},
		{"opacity", func(c *Config) { c.LineColor.Opacity = 1.5 }, "line_color"},
		{"cache size", func(c *Config) { c.PaintCacheSize = -5 }, "paint_cache_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("expected errors.Is ErrValidation")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.BufferPercentage = 0.49
	if err := cfg.Validate(); err != nil {
		t.Errorf("0.49 buffer should be valid: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Format = "gif"
	if err := cfg.Validate(); err == nil {
		t.Error("expected gif output to be rejected")
	}
}
