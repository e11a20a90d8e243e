package tiles

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/disintegration/imaging"
)

// Config controls tile size, default paints, thresholds and cache sizes.
type Config struct {
	TileWidth  int     `toml:"tile_width"`
	TileHeight int     `toml:"tile_height"`
	Scale      float64 `toml:"scale"`
	// Format is the output encoding, "png" or "jpeg".
	Format string `toml:"format"`

	// MaxFeaturesPerTile delegates tiles with more candidate features to
	// the fallback renderer. Zero disables the check.
	MaxFeaturesPerTile int `toml:"max_features_per_tile"`
	// BufferPercentage widens the query box by a fraction of the tile size
	// on each side, in addition to the style overlap.
	BufferPercentage float64 `toml:"buffer_percentage"`

	PointRadius        float64 `toml:"point_radius"`
	PointColor         Color   `toml:"point_color"`
	LineStrokeWidth    float64 `toml:"line_stroke_width"`
	LineColor          Color   `toml:"line_color"`
	PolygonStrokeWidth float64 `toml:"polygon_stroke_width"`
	PolygonColor       Color   `toml:"polygon_color"`
	FillPolygon        bool    `toml:"fill_polygon"`
	PolygonFillColor   Color   `toml:"polygon_fill_color"`

	Simplify        bool `toml:"simplify"`
	CacheGeometries bool `toml:"cache_geometries"`

	IconCacheSize     int `toml:"icon_cache_size"`
	PaintCacheSize    int `toml:"paint_cache_size"`
	GeometryCacheSize int `toml:"geometry_cache_size"`
}

// DefaultConfig returns the default renderer settings.
func DefaultConfig() *Config {
	return &Config{
		TileWidth:          DefaultTileSize,
		TileHeight:         DefaultTileSize,
		Scale:              1,
		Format:             "png",
		PointRadius:        4,
		PointColor:         MustColor("#000000FF"),
		LineStrokeWidth:    2,
		LineColor:          MustColor("#000000FF"),
		PolygonStrokeWidth: 2,
		PolygonColor:       MustColor("#000000FF"),
		FillPolygon:        true,
		PolygonFillColor:   MustColor("#00000011"),
		Simplify:           true,
		CacheGeometries:    true,
		IconCacheSize:      100,
		PaintCacheSize:     100,
		GeometryCacheSize:  1000,
	}
}

// LoadConfig reads a TOML config file over DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("tiles: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value against its permitted range.
func (c *Config) Validate() error {
	if c.TileWidth <= 0 {
		return &ValidationError{Field: "tile_width", Value: float64(c.TileWidth), Range: "(0,inf)"}
	}
	if c.TileHeight <= 0 {
		return &ValidationError{Field: "tile_height", Value: float64(c.TileHeight), Range: "(0,inf)"}
	}
	if c.Scale <= 0 {
		return &ValidationError{Field: "scale", Value: c.Scale, Range: "(0,inf)"}
	}
	if c.BufferPercentage < 0 || c.BufferPercentage >= 0.5 {
		return &ValidationError{Field: "buffer_percentage", Value: c.BufferPercentage, Range: "[0,0.5)"}
	}
	if c.MaxFeaturesPerTile < 0 {
		return &ValidationError{Field: "max_features_per_tile", Value: float64(c.MaxFeaturesPerTile), Range: "[0,inf)"}
	}
	for field, v := range map[string]float64{
		"point_radius":         c.PointRadius,
		"line_stroke_width":    c.LineStrokeWidth,
		"polygon_stroke_width": c.PolygonStrokeWidth,
	} {
		if v < 0 {
			return &ValidationError{Field: field, Value: v, Range: "[0,inf)"}
		}
	}
	for field, col := range map[string]Color{
		"point_color":        c.PointColor,
		"line_color":         c.LineColor,
		"polygon_color":      c.PolygonColor,
		"polygon_fill_color": c.PolygonFillColor,
	} {
		if err := unitRange(field, col.Opacity); err != nil {
			return err
		}
	}
	for field, n := range map[string]int{
		"icon_cache_size":     c.IconCacheSize,
		"paint_cache_size":    c.PaintCacheSize,
		"geometry_cache_size": c.GeometryCacheSize,
	} {
		if n < 0 {
			return &ValidationError{Field: field, Value: float64(n), Range: "[0,inf)"}
		}
	}
	if _, err := c.imageFormat(); err != nil {
		return err
	}
	return nil
}

func (c *Config) imageFormat() (imaging.Format, error) {
	f, err := imaging.FormatFromExtension(c.Format)
	if err != nil {
		return 0, fmt.Errorf("tiles: output format %q: %w", c.Format, err)
	}
	if f != imaging.PNG && f != imaging.JPEG {
		return 0, fmt.Errorf("tiles: output format %q not supported", c.Format)
	}
	return f, nil
}
