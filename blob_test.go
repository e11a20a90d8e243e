package geopackage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
)

func testPolygon() *Polygon {
	return &Polygon{Rings: [][]Coord{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}},
		{{X: 2, Y: 2}, {X: 2, Y: 8}, {X: 8, Y: 8}, {X: 8, Y: 2}, {X: 2, Y: 2}},
	}}
}

func TestRoundTrip_Blob(t *testing.T) {
	tests := []struct {
		name  string
		geom  Geometry
		order binary.ByteOrder
		env   EnvelopeType
	}{
		{"Point big endian no envelope", NewPoint(1.5, -2.5), binary.BigEndian, EnvelopeNone},
		{"Point little endian XY", NewPoint(3, 4), binary.LittleEndian, EnvelopeXY},
		{"LineString XYZ", &LineString{Dims: XYZ, Points: []Coord{{X: 0, Y: 0, Z: 1}, {X: 5, Y: 5, Z: 7}}}, binary.LittleEndian, EnvelopeXYZ},
		{"LineString XYM", &LineString{Dims: XYM, Points: []Coord{{X: 0, Y: 0, M: 2}, {X: 1, Y: 9, M: -4}}}, binary.BigEndian, EnvelopeXYM},
		{"Polygon XYZM", &Polygon{Dims: XYZM, Rings: [][]Coord{{{X: 0, Y: 0, Z: 1, M: 2}, {X: 1, Y: 0, Z: 3, M: 4}, {X: 1, Y: 1, Z: 5, M: 6}, {X: 0, Y: 0, Z: 1, M: 2}}}}, binary.LittleEndian, EnvelopeXYZM},
		{"Polygon with hole", testPolygon(), binary.BigEndian, EnvelopeXY},
		{"MultiPolygon", &MultiPolygon{Polygons: []*Polygon{testPolygon(), testPolygon()}}, binary.LittleEndian, EnvelopeXY},
		{"CircularString", &CircularString{Points: []Coord{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}}, binary.BigEndian, EnvelopeXY},
		{"CompoundCurve", &CompoundCurve{Curves: []Geometry{
			&LineString{Points: []Coord{{X: 0, Y: 0}, {X: 1, Y: 0}}},
			&CircularString{Points: []Coord{{X: 1, Y: 0}, {X: 2, Y: 1}, {X: 3, Y: 0}}},
		}}, binary.LittleEndian, EnvelopeXY},
		{"TIN", &TIN{Triangles: []*Triangle{
			{Rings: [][]Coord{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 0}}}},
		}}, binary.BigEndian, EnvelopeXY},
		{"Collection", &GeometryCollection{Geometries: []Geometry{
			NewPoint(1, 2),
			&LineString{Points: []Coord{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		}}, binary.LittleEndian, EnvelopeXY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := FromGeometry(tt.geom, 4326)
			blob.SetByteOrder(tt.order)
			if err := blob.SetEnvelopeType(tt.env); err != nil {
				t.Fatalf("SetEnvelopeType failed: %v", err)
			}

			data, err := blob.Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.SRSID() != 4326 {
				t.Errorf("expected srs 4326, got %d", decoded.SRSID())
			}
			if decoded.ByteOrder() != tt.order {
				t.Errorf("expected byte order %v, got %v", tt.order, decoded.ByteOrder())
			}
			if decoded.Flags() != blob.Flags() {
				t.Errorf("expected flags %08b, got %08b", blob.Flags(), decoded.Flags())
			}
			if decoded.Extended() != tt.geom.Type().Extended() {
				t.Errorf("expected extended %v", tt.geom.Type().Extended())
			}
			if !reflect.DeepEqual(decoded.Envelope(), blob.Envelope()) {
				t.Errorf("envelope mismatch: %+v vs %+v", decoded.Envelope(), blob.Envelope())
			}
			if !reflect.DeepEqual(decoded.Geometry(), tt.geom) {
				t.Errorf("geometry mismatch: %#v", decoded.Geometry())
			}
		})
	}
}

func TestEnvelopeIndicator_FieldSet(t *testing.T) {
	geom := &LineString{Dims: XYZM, Points: []Coord{
		{X: -1, Y: -2, Z: -3, M: -4},
		{X: 1, Y: 2, Z: 3, M: 4},
	}}

	tests := []struct {
		env        EnvelopeType
		headerSize int
		hasZ, hasM bool
	}{
		{EnvelopeNone, 8, false, false},
		{EnvelopeXY, 40, false, false},
		{EnvelopeXYZ, 56, true, false},
		{EnvelopeXYM, 56, false, true},
		{EnvelopeXYZM, 72, true, true},
	}

	for _, tt := range tests {
		blob := FromGeometry(geom, 0)
		if err := blob.SetEnvelopeType(tt.env); err != nil {
			t.Fatal(err)
		}
		data, err := blob.Encode()
		if err != nil {
			t.Fatal(err)
		}

		if got := EnvelopeType((data[3] >> 1) & 0x07); got != tt.env {
			t.Errorf("indicator: expected %d, got %d", tt.env, got)
		}

		decoded, err := Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.HeaderLength() != tt.headerSize {
			t.Errorf("indicator %d: expected header %d, got %d", tt.env, tt.headerSize, decoded.HeaderLength())
		}

		env := decoded.Envelope()
		if tt.env == EnvelopeNone {
			if env != nil {
				t.Errorf("expected no envelope, got %+v", env)
			}
			continue
		}
		if env.HasZ != tt.hasZ || env.HasM != tt.hasM {
			t.Errorf("indicator %d: expected z=%v m=%v, got %+v", tt.env, tt.hasZ, tt.hasM, env)
		}
		if env.MinX != -1 || env.MaxX != 1 || env.MinY != -2 || env.MaxY != 2 {
			t.Errorf("unexpected XY range %+v", env)
		}
		if tt.hasZ && (env.MinZ != -3 || env.MaxZ != 3) {
			t.Errorf("unexpected Z range %+v", env)
		}
		if tt.hasM && (env.MinM != -4 || env.MaxM != 4) {
			t.Errorf("unexpected M range %+v", env)
		}
	}
}

func TestDecode_HeaderLayout(t *testing.T) {
	blob := FromGeometry(NewPoint(1, 2), 3857)
	blob.SetByteOrder(binary.LittleEndian)
	data, err := blob.Encode()
	if err != nil {
		t.Fatal(err)
	}

	if string(data[:2]) != "GP" {
		t.Errorf("expected magic GP, got %q", data[:2])
	}
	if data[2] != 1 {
		t.Errorf("expected version 1, got %d", data[2])
	}
	// little endian + XY envelope
	if data[3] != 0x03 {
		t.Errorf("expected flags 0x03, got 0x%02x", data[3])
	}
	if srs := int32(binary.LittleEndian.Uint32(data[4:8])); srs != 3857 {
		t.Errorf("expected srs 3857, got %d", srs)
	}
	minX := math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	if minX != 1 {
		t.Errorf("expected envelope min x 1, got %v", minX)
	}
}

func TestDecode_FormatErrors(t *testing.T) {
	valid, err := FromGeometry(NewPoint(1, 2), 4326).Encode()
	if err != nil {
		t.Fatal(err)
	}

	mutate := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return fn(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", valid[:5], ErrTruncated},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidMagic},
		{"bad version", mutate(func(b []byte) []byte { b[2] = 2; return b }), ErrUnsupportedVersion},
		{"envelope indicator 5", mutate(func(b []byte) []byte { b[3] = (b[3] &^ 0x0E) | 5<<1; return b }), ErrInvalidEnvelopeIndicator},
		{"envelope indicator 7", mutate(func(b []byte) []byte { b[3] = (b[3] &^ 0x0E) | 7<<1; return b }), ErrInvalidEnvelopeIndicator},
		{"truncated envelope", valid[:20], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("expected a format error, got %v", err)
			}
		})
	}
}

func TestDecode_ReservedBits(t *testing.T) {
	valid, err := FromGeometry(testPolygon(), 4326).Encode()
	if err != nil {
		t.Fatal(err)
	}

	for _, reserved := range []byte{0x40, 0x80, 0xC0} {
		for flags := 0; flags < 0x40; flags++ {
			b := append([]byte(nil), valid...)
			b[3] = byte(flags) | reserved
			if _, err := Decode(b); !errors.Is(err, ErrReservedFlags) {
				t.Fatalf("flags 0x%02x: expected ErrReservedFlags, got %v", b[3], err)
			}
		}
	}
}

func TestDecode_CorruptPayload(t *testing.T) {
	valid, err := FromGeometry(testPolygon(), 4326).Encode()
	if err != nil {
		t.Fatal(err)
	}

	truncated := valid[:len(valid)-5]
	if _, err := Decode(truncated); !errors.Is(err, ErrGeometryDecode) {
		t.Errorf("expected ErrGeometryDecode, got %v", err)
	}

	unknown := append([]byte(nil), valid[:40]...)
	unknown = append(unknown, 0x00, 0x00, 0x00, 0x00, 0x0A) // big endian CurvePolygon
	_, err = Decode(unknown)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	var typeErr *UnsupportedTypeError
	if !errors.As(err, &typeErr) || typeErr.Code != 10 {
		t.Errorf("expected UnsupportedTypeError with code 10, got %v", err)
	}
}

func TestEmptyBlob(t *testing.T) {
	blob := FromGeometry(nil, 4326)
	if !blob.Empty() {
		t.Error("expected empty blob")
	}
	data, err := blob.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 {
		t.Errorf("expected header only, got %d bytes", len(data))
	}
	if data[3]&0x10 == 0 {
		t.Error("expected empty flag set")
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Geometry() != nil {
		t.Errorf("expected nil geometry, got %#v", decoded.Geometry())
	}
}

func TestSetters_InvalidateBytes(t *testing.T) {
	blob := FromGeometry(NewPoint(1, 2), 4326)
	first, err := blob.Encode()
	if err != nil {
		t.Fatal(err)
	}
	first = append([]byte(nil), first...)

	blob.SetSRSID(3857)
	second, _ := blob.Encode()
	if bytes.Equal(first, second) {
		t.Error("expected SetSRSID to change the encoding")
	}

	blob.SetByteOrder(binary.LittleEndian)
	third, _ := blob.Encode()
	if third[3]&0x01 == 0 {
		t.Error("expected little endian flag after SetByteOrder")
	}

	blob.SetEnvelope(nil)
	fourth, _ := blob.Encode()
	if len(fourth) != len(third)-32 {
		t.Errorf("expected envelope removal to drop 32 bytes, %d -> %d", len(third), len(fourth))
	}

	blob.SetGeometry(NewPoint(5, 6))
	decoded, err := Decode(mustEncode(t, blob))
	if err != nil {
		t.Fatal(err)
	}
	if p := decoded.Geometry().(*Point); p.Coord.X != 5 || p.Coord.Y != 6 {
		t.Errorf("expected new geometry, got %+v", p)
	}
}

func TestCopy_Independent(t *testing.T) {
	blob := FromGeometry(testPolygon(), 4326)
	c := blob.Copy()
	c.Geometry().(*Polygon).Rings[0][0].X = 99
	c.SetSRSID(1)

	if blob.Geometry().(*Polygon).Rings[0][0].X != 0 {
		t.Error("copy shares geometry with original")
	}
	if blob.SRSID() != 4326 {
		t.Error("copy shares header with original")
	}
}

func TestLazyEnvelope(t *testing.T) {
	blob := FromGeometry(&LineString{Points: []Coord{{X: 3, Y: 1}, {X: -1, Y: 7}}}, 0)
	env := blob.Envelope()
	if env == nil {
		t.Fatal("expected envelope to be built")
	}
	want := &Envelope{MinX: -1, MaxX: 3, MinY: 1, MaxY: 7}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("expected %+v, got %+v", want, env)
	}
}

func TestFromWKT_Blob(t *testing.T) {
	blob, err := FromWKT("POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))", 4326)
	if err != nil {
		t.Fatalf("FromWKT failed: %v", err)
	}
	text, err := blob.WKT()
	if err != nil {
		t.Fatal(err)
	}
	if text != "POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))" {
		t.Errorf("unexpected wkt %q", text)
	}

	payload, err := blob.WKB()
	if err != nil {
		t.Fatal(err)
	}
	g, err := ReadWKB(payload)
	if err != nil {
		t.Fatal(err)
	}
	if g.Type() != GeometryTypePolygon {
		t.Errorf("expected polygon payload, got %s", g.Type())
	}
}

func mustEncode(t *testing.T, b *GeometryBlob) []byte {
	t.Helper()
	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}
