package geopackage

import (
	"encoding/binary"
	"math"
)

// Flag bit layout of the blob header's fourth byte.
const (
	flagByteOrder     byte = 1 << 0
	flagEnvelopeShift      = 1
	flagEnvelopeMask  byte = 0x07
	flagEmpty         byte = 1 << 4
	flagExtended      byte = 1 << 5
	flagReserved      byte = 0xC0
)

// headerSize is magic + version + flags + srs id.
const headerSize = 8

// GeometryBlob is a decoded GeoPackage geometry value: header fields, an
// optional envelope and the geometry itself.
//
// The serialized form is memoized. Every setter clears it, so Encode after a
// mutation always reflects the current state.
type GeometryBlob struct {
	byteOrder    binary.ByteOrder
	srsID        int32
	envelopeType EnvelopeType
	envelope     *Envelope
	empty        bool
	extended     bool
	geometry     Geometry

	data []byte
}

// Decode parses a geometry blob. Header problems are returned as ErrFormat
// errors, payload problems as ErrGeometryDecode or ErrUnsupportedType.
func Decode(data []byte) (*GeometryBlob, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if string(data[0:2]) != Magic {
		return nil, ErrInvalidMagic
	}
	if data[2] != Version {
		return nil, ErrUnsupportedVersion
	}

	flags := data[3]
	if flags&flagReserved != 0 {
		return nil, ErrReservedFlags
	}
	envType := EnvelopeType((flags >> flagEnvelopeShift) & flagEnvelopeMask)
	if !envType.Valid() {
		return nil, ErrInvalidEnvelopeIndicator
	}

	b := &GeometryBlob{
		byteOrder:    binary.BigEndian,
		envelopeType: envType,
		empty:        flags&flagEmpty != 0,
		extended:     flags&flagExtended != 0,
	}
	if flags&flagByteOrder != 0 {
		b.byteOrder = binary.LittleEndian
	}
	b.srsID = int32(b.byteOrder.Uint32(data[4:8]))

	offset := headerSize
	if n := envType.Doubles(); n > 0 {
		if len(data) < offset+n*8 {
			return nil, ErrTruncated
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = math.Float64frombits(b.byteOrder.Uint64(data[offset:]))
			offset += 8
		}
		b.envelope = envelopeFromValues(envType, vals)
	}

	if !b.empty {
		g, err := ReadWKB(data[offset:])
		if err != nil {
			return nil, err
		}
		b.geometry = g
	}

	b.data = append([]byte(nil), data...)
	return b, nil
}

// envelopeFromValues maps the on-disk double order (x range, y range, then
// z and/or m ranges) onto an Envelope.
func envelopeFromValues(t EnvelopeType, v []float64) *Envelope {
	e := &Envelope{MinX: v[0], MaxX: v[1], MinY: v[2], MaxY: v[3]}
	switch t {
	case EnvelopeXYZ:
		e.MinZ, e.MaxZ, e.HasZ = v[4], v[5], true
	case EnvelopeXYM:
		e.MinM, e.MaxM, e.HasM = v[4], v[5], true
	case EnvelopeXYZM:
		e.MinZ, e.MaxZ, e.HasZ = v[4], v[5], true
		e.MinM, e.MaxM, e.HasM = v[6], v[7], true
	}
	return e
}

// FromBytes is Decode under the factory naming used by the other
// constructors.
func FromBytes(data []byte) (*GeometryBlob, error) {
	return Decode(data)
}

// FromGeometry wraps g in a big endian blob. Non-empty geometries get an XY
// envelope, built when the blob is first encoded.
func FromGeometry(g Geometry, srsID int32) *GeometryBlob {
	b := &GeometryBlob{byteOrder: binary.BigEndian, srsID: srsID}
	b.SetGeometry(g)
	if !b.empty {
		b.envelopeType = EnvelopeXY
	}
	return b
}

// FromWKT parses text and wraps the geometry with FromGeometry.
func FromWKT(text string, srsID int32) (*GeometryBlob, error) {
	g, err := ParseWKT(text)
	if err != nil {
		return nil, err
	}
	return FromGeometry(g, srsID), nil
}

// Copy returns a deep copy of b.
func (b *GeometryBlob) Copy() *GeometryBlob {
	c := *b
	c.envelope = b.envelope.Copy()
	c.geometry = Clone(b.geometry)
	if b.data != nil {
		c.data = append([]byte(nil), b.data...)
	}
	return &c
}

// ByteOrder returns the byte order used for the header, envelope and payload.
func (b *GeometryBlob) ByteOrder() binary.ByteOrder {
	return b.byteOrder
}

// SetByteOrder changes the byte order. Anything other than little endian is
// treated as big endian.
func (b *GeometryBlob) SetByteOrder(order binary.ByteOrder) {
	if order != binary.LittleEndian {
		order = binary.BigEndian
	}
	b.byteOrder = order
	b.data = nil
}

// SRSID returns the spatial reference system id.
func (b *GeometryBlob) SRSID() int32 {
	return b.srsID
}

// SetSRSID changes the spatial reference system id.
func (b *GeometryBlob) SetSRSID(id int32) {
	b.srsID = id
	b.data = nil
}

// EnvelopeType returns the envelope indicator that will be written.
func (b *GeometryBlob) EnvelopeType() EnvelopeType {
	return b.envelopeType
}

// SetEnvelopeType requests an envelope of the given shape. The envelope is
// rebuilt from the geometry the next time it is needed.
func (b *GeometryBlob) SetEnvelopeType(t EnvelopeType) error {
	if !t.Valid() {
		return ErrInvalidEnvelopeIndicator
	}
	if t != b.envelopeType {
		b.envelopeType = t
		if t == EnvelopeNone {
			b.envelope = nil
		} else if b.envelope != nil {
			b.envelope = b.envelope.withType(t)
		}
	}
	b.data = nil
	return nil
}

// Envelope returns the envelope, building it from the geometry if one was
// requested but not computed yet. It returns nil when there is no envelope.
func (b *GeometryBlob) Envelope() *Envelope {
	if b.envelopeType == EnvelopeNone {
		return nil
	}
	if b.envelope == nil {
		if built := BuildEnvelope(b.geometry); built != nil {
			b.envelope = built.withType(b.envelopeType)
		}
	}
	return b.envelope
}

// SetEnvelope replaces the envelope. A nil envelope removes it.
func (b *GeometryBlob) SetEnvelope(e *Envelope) {
	b.envelope = e.Copy()
	b.envelopeType = e.Type()
	b.data = nil
}

// BuildEnvelope computes the envelope from the geometry, independent of the
// envelope stored in the blob.
func (b *GeometryBlob) BuildEnvelope() *Envelope {
	return BuildEnvelope(b.geometry)
}

// Geometry returns the decoded geometry, nil for an empty blob.
func (b *GeometryBlob) Geometry() Geometry {
	return b.geometry
}

// SetGeometry replaces the geometry and recomputes the empty and extended
// flags. A previously built envelope is discarded.
func (b *GeometryBlob) SetGeometry(g Geometry) {
	b.geometry = g
	b.empty = g == nil || g.IsEmpty()
	b.extended = g != nil && g.Type().Extended()
	b.envelope = nil
	b.data = nil
}

// Empty reports the empty-geometry flag.
func (b *GeometryBlob) Empty() bool {
	return b.empty
}

// Extended reports the extended-type flag.
func (b *GeometryBlob) Extended() bool {
	return b.extended
}

// HeaderLength is the byte offset where the well-known binary payload starts.
func (b *GeometryBlob) HeaderLength() int {
	return headerSize + b.writtenEnvelopeType().Doubles()*8
}

// writtenEnvelopeType is the indicator Encode will write; an envelope that
// cannot be built (no coordinates) is written as absent.
func (b *GeometryBlob) writtenEnvelopeType() EnvelopeType {
	if b.Envelope() == nil {
		return EnvelopeNone
	}
	return b.envelopeType
}

// Flags returns the header flags byte computed from the current state.
func (b *GeometryBlob) Flags() byte {
	var flags byte
	if b.byteOrder == binary.LittleEndian {
		flags |= flagByteOrder
	}
	flags |= byte(b.writtenEnvelopeType()) << flagEnvelopeShift
	if b.empty {
		flags |= flagEmpty
	}
	if b.extended {
		flags |= flagExtended
	}
	return flags
}

// Encode serializes the blob. The result is memoized until the next
// mutation; callers must not modify it.
func (b *GeometryBlob) Encode() ([]byte, error) {
	if b.data != nil {
		return b.data, nil
	}

	env := b.Envelope()
	envType := b.writtenEnvelopeType()

	out := make([]byte, 0, headerSize+envType.Doubles()*8)
	out = append(out, Magic...)
	out = append(out, Version, b.Flags())
	var scratch [8]byte
	b.byteOrder.PutUint32(scratch[:4], uint32(b.srsID))
	out = append(out, scratch[:4]...)

	if envType != EnvelopeNone {
		vals := []float64{env.MinX, env.MaxX, env.MinY, env.MaxY}
		if envType.HasZ() {
			vals = append(vals, env.MinZ, env.MaxZ)
		}
		if envType.HasM() {
			vals = append(vals, env.MinM, env.MaxM)
		}
		for _, v := range vals {
			b.byteOrder.PutUint64(scratch[:], math.Float64bits(v))
			out = append(out, scratch[:]...)
		}
	}

	if b.geometry != nil {
		payload, err := WriteWKB(b.geometry, b.byteOrder)
		if err != nil {
			return nil, err
		}
		out = append(out, payload...)
	}

	b.data = out
	return out, nil
}

// WKB returns the well-known binary payload, nil for an empty blob.
func (b *GeometryBlob) WKB() ([]byte, error) {
	data, err := b.Encode()
	if err != nil {
		return nil, err
	}
	return data[b.HeaderLength():], nil
}

// WKT renders the geometry as well-known text.
func (b *GeometryBlob) WKT() (string, error) {
	return FormatWKT(b.geometry)
}
