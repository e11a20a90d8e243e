// Package fgb stores feature tables as FlatGeobuf files. A Table opened from
// a file serves the features to the tile renderer through the file's packed
// R-tree; WriteFeatures and WriteGeoJSON produce such files.
package fgb

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrNilGeometry      = errors.New("fgb: nil geometry")
	ErrUnsupportedType  = errors.New("fgb: unsupported geometry type")
	ErrInvalidData      = errors.New("fgb: invalid data")
	ErrNoIndex          = errors.New("fgb: file has no spatial index")
	ErrPropertyMismatch = errors.New("fgb: property type mismatch")
)

// DefaultIDColumn is the property column feature ids are written to and read
// from.
const DefaultIDColumn = "fid"

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// WebMercator returns the web mercator CRS (EPSG:3857).
func WebMercator() *CRS {
	return &CRS{
		Code: 3857,
		Name: "WGS 84 / Pseudo-Mercator",
	}
}

// Options configures FlatGeobuf writing.
type Options struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index
	CRS          *CRS   // Coordinate reference system (optional)
	// IDColumn receives the 1-based feature ordinal for features that do
	// not already carry it. Empty disables it.
	IDColumn string
}

// DefaultOptions returns indexed WGS84 output with a fid column.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
		CRS:          WGS84(),
		IDColumn:     DefaultIDColumn,
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name        string // Column name
	Type        string // Column type ("Bool", "Int", "Long", "Double", "String", "Json", etc.)
	Title       string // Column title (human-readable)
	Description string // Column description
	Nullable    bool   // Whether the column can contain null values
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string       // Layer name
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Point", "Polygon", "Unknown", etc.)
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system
	HasIndex      bool         // Whether the file has a spatial index
	HasZ          bool         // Whether geometries carry Z values
	HasM          bool         // Whether geometries carry M values
	Columns       []ColumnInfo // Property column schema
}

// Column returns the index of the named column, or -1.
func (h *Header) Column(name string) int {
	for i, c := range h.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
