package geopackage

import (
	"math"

	"github.com/paulmach/orb"
)

// EnvelopeType is the 3-bit envelope indicator stored in the blob flags.
type EnvelopeType uint8

// Envelope indicators. Values above EnvelopeXYZM are invalid.
const (
	EnvelopeNone EnvelopeType = iota
	EnvelopeXY
	EnvelopeXYZ
	EnvelopeXYM
	EnvelopeXYZM
)

// Valid reports whether t is a defined indicator.
func (t EnvelopeType) Valid() bool { return t <= EnvelopeXYZM }

// HasZ reports whether the envelope carries a Z range.
func (t EnvelopeType) HasZ() bool { return t == EnvelopeXYZ || t == EnvelopeXYZM }

// HasM reports whether the envelope carries an M range.
func (t EnvelopeType) HasM() bool { return t == EnvelopeXYM || t == EnvelopeXYZM }

// Doubles is the number of float64 values the envelope occupies on disk.
func (t EnvelopeType) Doubles() int {
	switch t {
	case EnvelopeXY:
		return 4
	case EnvelopeXYZ, EnvelopeXYM:
		return 6
	case EnvelopeXYZM:
		return 8
	default:
		return 0
	}
}

// envelopeTypeOf maps Z/M presence to an indicator.
func envelopeTypeOf(z, m bool) EnvelopeType {
	switch {
	case z && m:
		return EnvelopeXYZM
	case z:
		return EnvelopeXYZ
	case m:
		return EnvelopeXYM
	default:
		return EnvelopeXY
	}
}

// Envelope is an axis aligned bounding interval, optionally with Z and M
// ranges.
type Envelope struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
	MinM, MaxM float64
	HasZ, HasM bool
}

// Type returns the indicator matching the envelope's shape.
func (e *Envelope) Type() EnvelopeType {
	if e == nil {
		return EnvelopeNone
	}
	return envelopeTypeOf(e.HasZ, e.HasM)
}

// Bound returns the XY extent as an orb.Bound.
func (e *Envelope) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinX, e.MinY},
		Max: orb.Point{e.MaxX, e.MaxY},
	}
}

// Intersects reports whether the XY extents of e and o overlap, touching
// edges included.
func (e *Envelope) Intersects(o *Envelope) bool {
	if e == nil || o == nil {
		return false
	}
	return e.MinX <= o.MaxX && e.MaxX >= o.MinX &&
		e.MinY <= o.MaxY && e.MaxY >= o.MinY
}

// Copy returns an independent copy of e.
func (e *Envelope) Copy() *Envelope {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// withType reshapes e to the requested indicator. Dropped ranges and ranges
// the envelope does not have are zero filled.
func (e *Envelope) withType(t EnvelopeType) *Envelope {
	c := e.Copy()
	if !t.HasZ() || !e.HasZ {
		c.MinZ, c.MaxZ = 0, 0
	}
	if !t.HasM() || !e.HasM {
		c.MinM, c.MaxM = 0, 0
	}
	c.HasZ, c.HasM = t.HasZ(), t.HasM()
	return c
}

// EnvelopeFromBound builds an XY envelope from an orb.Bound.
func EnvelopeFromBound(b orb.Bound) *Envelope {
	return &Envelope{MinX: b.Min[0], MaxX: b.Max[0], MinY: b.Min[1], MaxY: b.Max[1]}
}

// BuildEnvelope computes the envelope of g. It returns nil for nil or empty
// geometries.
func BuildEnvelope(g Geometry) *Envelope {
	if g == nil {
		return nil
	}

	l := g.Layout()
	inf := math.Inf(1)
	e := &Envelope{
		MinX: inf, MaxX: -inf,
		MinY: inf, MaxY: -inf,
		MinZ: inf, MaxZ: -inf,
		MinM: inf, MaxM: -inf,
		HasZ: l.HasZ(),
		HasM: l.HasM(),
	}

	count := 0
	EachCoord(g, func(c Coord) {
		if math.IsNaN(c.X) || math.IsNaN(c.Y) {
			return
		}
		count++
		e.MinX, e.MaxX = math.Min(e.MinX, c.X), math.Max(e.MaxX, c.X)
		e.MinY, e.MaxY = math.Min(e.MinY, c.Y), math.Max(e.MaxY, c.Y)
		if e.HasZ {
			e.MinZ, e.MaxZ = math.Min(e.MinZ, c.Z), math.Max(e.MaxZ, c.Z)
		}
		if e.HasM {
			e.MinM, e.MaxM = math.Min(e.MinM, c.M), math.Max(e.MaxM, c.M)
		}
	})
	if count == 0 {
		return nil
	}

	if !e.HasZ {
		e.MinZ, e.MaxZ = 0, 0
	}
	if !e.HasM {
		e.MinM, e.MaxM = 0, 0
	}
	return e
}
