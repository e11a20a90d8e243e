package tiles

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	geopackage "github.com/tingold/orb-geopackage"
)

// Color is an RGB color with an opacity in [0,1].
type Color struct {
	R, G, B uint8
	Opacity float64
}

// NewColor builds a color, validating the opacity.
func NewColor(r, g, b uint8, opacity float64) (Color, error) {
	if err := unitRange("opacity", opacity); err != nil {
		return Color{}, err
	}
	return Color{R: r, G: g, B: b, Opacity: opacity}, nil
}

// MustColor is like ParseColor but panics on error.
func MustColor(hex string) Color {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA". The leading '#' is optional.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("tiles: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("tiles: invalid color %q", s)
	}
	alpha := uint64(0xFF)
	if len(h) == 8 {
		alpha = v & 0xFF
		v >>= 8
	}
	return Color{
		R:       uint8(v >> 16),
		G:       uint8(v >> 8),
		B:       uint8(v),
		Opacity: float64(alpha) / 255,
	}, nil
}

// Alpha is the opacity as an 8-bit value.
func (c Color) Alpha() uint8 {
	return uint8(math.Round(c.Opacity * 255))
}

// Hex renders the color as "#RRGGBBAA".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.Alpha())
}

// NRGBA converts to a non-premultiplied color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.Alpha()}
}

func (c Color) String() string { return c.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so colors can be written
// as hex strings in TOML files.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultStyleWidth is the width of a style row that does not set one.
const DefaultStyleWidth = 1.0

// StyleRow is a resolved style: stroke color, stroke width and fill color,
// each optional.
type StyleRow struct {
	ID        int64
	Name      string
	Color     *Color
	Width     *float64
	FillColor *Color
}

// HasColor reports whether the style sets a stroke color.
func (s *StyleRow) HasColor() bool { return s != nil && s.Color != nil }

// WidthOrDefault returns the style width, DefaultStyleWidth when unset.
func (s *StyleRow) WidthOrDefault() float64 {
	if s == nil || s.Width == nil {
		return DefaultStyleWidth
	}
	return *s.Width
}

// Validate checks the width and the color opacities.
func (s *StyleRow) Validate() error {
	if s.Width != nil && *s.Width < 0 {
		return &ValidationError{Field: "width", Value: *s.Width, Range: "[0,inf)"}
	}
	for _, c := range []*Color{s.Color, s.FillColor} {
		if c == nil {
			continue
		}
		if err := unitRange("opacity", c.Opacity); err != nil {
			return err
		}
	}
	return nil
}

// Default icon anchor, bottom center.
const (
	DefaultAnchorU = 0.5
	DefaultAnchorV = 1.0
)

// IconRow is an icon image with optional display size and anchor fractions.
type IconRow struct {
	ID          int64
	Name        string
	Data        []byte
	ContentType string
	Width       *float64
	Height      *float64
	AnchorU     *float64
	AnchorV     *float64
}

// Validate checks the anchor fractions and sizes.
func (i *IconRow) Validate() error {
	if i.AnchorU != nil {
		if err := unitRange("anchor_u", *i.AnchorU); err != nil {
			return err
		}
	}
	if i.AnchorV != nil {
		if err := unitRange("anchor_v", *i.AnchorV); err != nil {
			return err
		}
	}
	for name, v := range map[string]*float64{"width": i.Width, "height": i.Height} {
		if v != nil && *v <= 0 {
			return &ValidationError{Field: name, Value: *v, Range: "(0,inf)"}
		}
	}
	return nil
}

// AnchorUOrDefault returns the horizontal anchor fraction.
func (i *IconRow) AnchorUOrDefault() float64 {
	if i.AnchorU == nil {
		return DefaultAnchorU
	}
	return *i.AnchorU
}

// AnchorVOrDefault returns the vertical anchor fraction.
func (i *IconRow) AnchorVOrDefault() float64 {
	if i.AnchorV == nil {
		return DefaultAnchorV
	}
	return *i.AnchorV
}

// DerivedDimensions returns the display size of the icon given the native
// image size. A single configured dimension scales the other by the image
// aspect ratio; with none configured the native size is used.
func (i *IconRow) DerivedDimensions(imageWidth, imageHeight int) (float64, float64) {
	w, h := float64(imageWidth), float64(imageHeight)
	switch {
	case i.Width != nil && i.Height != nil:
		return *i.Width, *i.Height
	case i.Width != nil:
		if w > 0 {
			h = *i.Width * h / w
		}
		return *i.Width, h
	case i.Height != nil:
		if h > 0 {
			w = *i.Height * w / h
		}
		return w, *i.Height
	}
	return w, h
}

// FeatureStyle is the style and icon resolved for one feature. The FromTable
// flags record whether each came from a table level default rather than a
// row level mapping.
type FeatureStyle struct {
	Style          *StyleRow
	Icon           *IconRow
	StyleFromTable bool
	IconFromTable  bool
}

// UseIcon reports whether the icon should be drawn instead of the style. A
// row level style beats an inherited table icon; otherwise any icon wins.
func (fs *FeatureStyle) UseIcon() bool {
	if fs == nil || fs.Icon == nil {
		return false
	}
	return !fs.IconFromTable || fs.Style == nil || fs.StyleFromTable
}

// StyleMappings supplies style and icon rows for features and tables. Each
// lookup is an exact match on the geometry type; GeometryTypeGeometry asks
// for the default.
type StyleMappings interface {
	FeatureStyle(featureID int64, t geopackage.GeometryType) *StyleRow
	FeatureIcon(featureID int64, t geopackage.GeometryType) *IconRow
	TableStyle(t geopackage.GeometryType) *StyleRow
	TableIcon(t geopackage.GeometryType) *IconRow

	// Styles and Icons list every row that can be drawn from the table.
	Styles() []*StyleRow
	Icons() []*IconRow
}

// ResolveStyle picks the style and icon for a feature. For each of them the
// first hit wins, in order: feature and geometry type, feature default,
// table and geometry type, table default. It returns nil when neither is
// found.
func ResolveStyle(m StyleMappings, featureID int64, t geopackage.GeometryType) *FeatureStyle {
	if m == nil {
		return nil
	}

	fs := &FeatureStyle{}
	fs.Style = m.FeatureStyle(featureID, t)
	if fs.Style == nil && t != geopackage.GeometryTypeGeometry {
		fs.Style = m.FeatureStyle(featureID, geopackage.GeometryTypeGeometry)
	}
	if fs.Style == nil {
		fs.Style = m.TableStyle(t)
		if fs.Style == nil && t != geopackage.GeometryTypeGeometry {
			fs.Style = m.TableStyle(geopackage.GeometryTypeGeometry)
		}
		fs.StyleFromTable = fs.Style != nil
	}

	fs.Icon = m.FeatureIcon(featureID, t)
	if fs.Icon == nil && t != geopackage.GeometryTypeGeometry {
		fs.Icon = m.FeatureIcon(featureID, geopackage.GeometryTypeGeometry)
	}
	if fs.Icon == nil {
		fs.Icon = m.TableIcon(t)
		if fs.Icon == nil && t != geopackage.GeometryTypeGeometry {
			fs.Icon = m.TableIcon(geopackage.GeometryTypeGeometry)
		}
		fs.IconFromTable = fs.Icon != nil
	}

	if fs.Style == nil && fs.Icon == nil {
		return nil
	}
	return fs
}
