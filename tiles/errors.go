package tiles

import (
	"errors"
	"fmt"
)

// Common errors returned by this package.
var (
	ErrValidation            = errors.New("tiles: invalid value")
	ErrUnsupportedProjection = errors.New("tiles: unsupported projection")
	ErrNoSource              = errors.New("tiles: nil feature source")
	ErrInvalidCircularString = errors.New("tiles: circular string needs an odd number of points, at least 3")
)

// ValidationError reports a value outside its permitted range. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field string
	Value float64
	Range string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tiles: %s %v outside %s", e.Field, e.Value, e.Range)
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func unitRange(field string, v float64) error {
	if v < 0 || v > 1 {
		return &ValidationError{Field: field, Value: v, Range: "[0,1]"}
	}
	return nil
}

// FeatureError reports a feature a source could not read. Renderers skip
// the feature and keep drawing; any other iteration error aborts the tile.
// ID is zero when the feature id could not be read either.
type FeatureError struct {
	ID  int64
	Err error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("tiles: feature %d: %v", e.ID, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }
