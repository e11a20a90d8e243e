// Package geopackage provides the GeoPackage binary geometry codec for the orb
// geometry library. It decodes and encodes geometry blobs (header, optional
// envelope and an embedded well-known binary payload), reads and writes the
// well-known text form, and converts between its geometry model and orb types.
package geopackage

import (
	"errors"
	"fmt"
)

// Magic is the two byte token that starts every geometry blob.
const Magic = "GP"

// Version is the only blob version this package reads and writes.
const Version = 1

// Common errors returned by this package.
var (
	ErrNilGeometry     = errors.New("geopackage: nil geometry")
	ErrFormat          = errors.New("geopackage: invalid geometry blob")
	ErrGeometryDecode  = errors.New("geopackage: malformed geometry")
	ErrUnsupportedType = errors.New("geopackage: unsupported geometry type")
)

// Format errors. All of them satisfy errors.Is(err, ErrFormat).
var (
	ErrInvalidMagic             = fmt.Errorf("%w: bad magic", ErrFormat)
	ErrUnsupportedVersion       = fmt.Errorf("%w: unsupported version", ErrFormat)
	ErrInvalidEnvelopeIndicator = fmt.Errorf("%w: invalid envelope indicator", ErrFormat)
	ErrReservedFlags            = fmt.Errorf("%w: reserved flag bits set", ErrFormat)
	ErrTruncated                = fmt.Errorf("%w: truncated buffer", ErrFormat)
)

// UnsupportedTypeError reports a well-known binary type code outside the
// supported geometry set.
type UnsupportedTypeError struct {
	Code uint32
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("geopackage: unsupported geometry type code %d", e.Code)
}

// Is lets errors.Is match ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// decodeErrorf wraps a payload problem as ErrGeometryDecode.
func decodeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGeometryDecode, fmt.Sprintf(format, args...))
}
