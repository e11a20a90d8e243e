package tiles

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	geopackage "github.com/tingold/orb-geopackage"
)

// StyleTable is an in-memory StyleMappings built from style and icon rows
// plus table and per-feature mappings.
type StyleTable struct {
	styles map[int64]*StyleRow
	icons  map[int64]*IconRow

	tableStyles   map[geopackage.GeometryType]int64
	tableIcons    map[geopackage.GeometryType]int64
	featureStyles map[featureKey]int64
	featureIcons  map[featureKey]int64
}

type featureKey struct {
	id int64
	t  geopackage.GeometryType
}

// NewStyleTable returns an empty table.
func NewStyleTable() *StyleTable {
	return &StyleTable{
		styles:        make(map[int64]*StyleRow),
		icons:         make(map[int64]*IconRow),
		tableStyles:   make(map[geopackage.GeometryType]int64),
		tableIcons:    make(map[geopackage.GeometryType]int64),
		featureStyles: make(map[featureKey]int64),
		featureIcons:  make(map[featureKey]int64),
	}
}

// AddStyle validates and stores a style row.
func (t *StyleTable) AddStyle(s *StyleRow) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("style %d: %w", s.ID, err)
	}
	t.styles[s.ID] = s
	return nil
}

// AddIcon validates and stores an icon row.
func (t *StyleTable) AddIcon(i *IconRow) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("icon %d: %w", i.ID, err)
	}
	t.icons[i.ID] = i
	return nil
}

// SetTableStyle maps a style to every feature of geometry type gt.
func (t *StyleTable) SetTableStyle(gt geopackage.GeometryType, styleID int64) error {
	if _, ok := t.styles[styleID]; !ok {
		return fmt.Errorf("tiles: unknown style %d", styleID)
	}
	t.tableStyles[gt] = styleID
	return nil
}

// SetTableIcon maps an icon to every feature of geometry type gt.
func (t *StyleTable) SetTableIcon(gt geopackage.GeometryType, iconID int64) error {
	if _, ok := t.icons[iconID]; !ok {
		return fmt.Errorf("tiles: unknown icon %d", iconID)
	}
	t.tableIcons[gt] = iconID
	return nil
}

// SetFeatureStyle maps a style to one feature.
func (t *StyleTable) SetFeatureStyle(featureID int64, gt geopackage.GeometryType, styleID int64) error {
	if _, ok := t.styles[styleID]; !ok {
		return fmt.Errorf("tiles: unknown style %d", styleID)
	}
	t.featureStyles[featureKey{featureID, gt}] = styleID
	return nil
}

// SetFeatureIcon maps an icon to one feature.
func (t *StyleTable) SetFeatureIcon(featureID int64, gt geopackage.GeometryType, iconID int64) error {
	if _, ok := t.icons[iconID]; !ok {
		return fmt.Errorf("tiles: unknown icon %d", iconID)
	}
	t.featureIcons[featureKey{featureID, gt}] = iconID
	return nil
}

func (t *StyleTable) FeatureStyle(featureID int64, gt geopackage.GeometryType) *StyleRow {
	if id, ok := t.featureStyles[featureKey{featureID, gt}]; ok {
		return t.styles[id]
	}
	return nil
}

func (t *StyleTable) FeatureIcon(featureID int64, gt geopackage.GeometryType) *IconRow {
	if id, ok := t.featureIcons[featureKey{featureID, gt}]; ok {
		return t.icons[id]
	}
	return nil
}

func (t *StyleTable) TableStyle(gt geopackage.GeometryType) *StyleRow {
	if id, ok := t.tableStyles[gt]; ok {
		return t.styles[id]
	}
	return nil
}

func (t *StyleTable) TableIcon(gt geopackage.GeometryType) *IconRow {
	if id, ok := t.tableIcons[gt]; ok {
		return t.icons[id]
	}
	return nil
}

// Styles returns every style row ordered by id.
func (t *StyleTable) Styles() []*StyleRow {
	out := make([]*StyleRow, 0, len(t.styles))
	for _, s := range t.styles {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *StyleRow) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Icons returns every icon row ordered by id.
func (t *StyleTable) Icons() []*IconRow {
	out := make([]*IconRow, 0, len(t.icons))
	for _, i := range t.icons {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *IconRow) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// styleSheet is the TOML form of a StyleTable:
//
//	[[style]]
//	id = 1
//	color = "#1E88E5FF"
//	width = 3.0
//	fill_color = "#1E88E540"
//
//	[[icon]]
//	id = 1
//	file = "marker.png"
//	width = 24.0
//
//	[[table]]
//	geometry_type = "point"
//	icon = 1
//
//	[[feature]]
//	id = 42
//	style = 1
type styleSheet struct {
	Styles   []styleEntry   `toml:"style"`
	Icons    []iconEntry    `toml:"icon"`
	Table    []mappingEntry `toml:"table"`
	Features []mappingEntry `toml:"feature"`
}

type styleEntry struct {
	ID        int64    `toml:"id"`
	Name      string   `toml:"name"`
	Color     *Color   `toml:"color"`
	Width     *float64 `toml:"width"`
	FillColor *Color   `toml:"fill_color"`
}

type iconEntry struct {
	ID          int64    `toml:"id"`
	Name        string   `toml:"name"`
	File        string   `toml:"file"`
	ContentType string   `toml:"content_type"`
	Width       *float64 `toml:"width"`
	Height      *float64 `toml:"height"`
	AnchorU     *float64 `toml:"anchor_u"`
	AnchorV     *float64 `toml:"anchor_v"`
}

type mappingEntry struct {
	ID           int64  `toml:"id"`
	GeometryType string `toml:"geometry_type"`
	Style        int64  `toml:"style"`
	Icon         int64  `toml:"icon"`
}

// LoadStyleSheet reads a TOML style sheet. Icon files are resolved relative
// to the sheet's directory.
func LoadStyleSheet(path string) (*StyleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStyleSheet(data, filepath.Dir(path))
}

// ParseStyleSheet decodes a TOML style sheet, reading icon files from dir.
func ParseStyleSheet(data []byte, dir string) (*StyleTable, error) {
	var sheet styleSheet
	if err := toml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("tiles: parse style sheet: %w", err)
	}

	t := NewStyleTable()
	for _, s := range sheet.Styles {
		row := &StyleRow{ID: s.ID, Name: s.Name, Color: s.Color, Width: s.Width, FillColor: s.FillColor}
		if err := t.AddStyle(row); err != nil {
			return nil, err
		}
	}
	for _, i := range sheet.Icons {
		file := i.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		img, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("icon %d: %w", i.ID, err)
		}
		row := &IconRow{
			ID:          i.ID,
			Name:        i.Name,
			Data:        img,
			ContentType: i.ContentType,
			Width:       i.Width,
			Height:      i.Height,
			AnchorU:     i.AnchorU,
			AnchorV:     i.AnchorV,
		}
		if err := t.AddIcon(row); err != nil {
			return nil, err
		}
	}

	for _, m := range sheet.Table {
		gt, err := mappingType(m.GeometryType)
		if err != nil {
			return nil, err
		}
		if m.Style != 0 {
			if err := t.SetTableStyle(gt, m.Style); err != nil {
				return nil, err
			}
		}
		if m.Icon != 0 {
			if err := t.SetTableIcon(gt, m.Icon); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range sheet.Features {
		gt, err := mappingType(m.GeometryType)
		if err != nil {
			return nil, err
		}
		if m.Style != 0 {
			if err := t.SetFeatureStyle(m.ID, gt, m.Style); err != nil {
				return nil, err
			}
		}
		if m.Icon != 0 {
			if err := t.SetFeatureIcon(m.ID, gt, m.Icon); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// mappingType parses a geometry type name; empty means the default.
func mappingType(name string) (geopackage.GeometryType, error) {
	if name == "" {
		return geopackage.GeometryTypeGeometry, nil
	}
	gt, ok := geopackage.ParseGeometryType(name)
	if !ok {
		return 0, fmt.Errorf("tiles: unknown geometry type %q", name)
	}
	return gt, nil
}
