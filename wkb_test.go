package geopackage

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

func TestWriteWKB_MatchesOrb(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
	}{
		{"Point", orb.Point{1.5, 2.5}},
		{"LineString", orb.LineString{{0, 0}, {1, 1}, {2, 2}}},
		{"Polygon", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}},
		{"MultiPoint", orb.MultiPoint{{1, 2}, {3, 4}}},
		{"MultiLineString", orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}}},
		{"MultiPolygon", orb.MultiPolygon{{{{0, 0}, {5, 0}, {5, 5}, {0, 0}}}}},
		{"Collection", orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}}},
	}

	for _, tt := range tests {
		for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
			t.Run(tt.name, func(t *testing.T) {
				want, err := wkb.Marshal(tt.geom, order)
				if err != nil {
					t.Fatalf("orb marshal failed: %v", err)
				}

				g, err := FromOrb(tt.geom)
				if err != nil {
					t.Fatal(err)
				}
				got, err := WriteWKB(g, order)
				if err != nil {
					t.Fatalf("WriteWKB failed: %v", err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("encoding differs from orb\n got %x\nwant %x", got, want)
				}

				back, err := ReadWKB(want)
				if err != nil {
					t.Fatalf("ReadWKB failed: %v", err)
				}
				if !reflect.DeepEqual(back, g) {
					t.Errorf("decoded %#v, want %#v", back, g)
				}
			})
		}
	}
}

func TestReadWKB_EWKBFlags(t *testing.T) {
	// little endian point with the EWKB Z flag
	data := []byte{0x01}
	data = binary.LittleEndian.AppendUint32(data, 0x80000001)
	for _, v := range []float64{1, 2, 3} {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
	}

	g, err := ReadWKB(data)
	if err != nil {
		t.Fatalf("ReadWKB failed: %v", err)
	}
	p, ok := g.(*Point)
	if !ok {
		t.Fatalf("expected point, got %T", g)
	}
	if p.Dims != XYZ || p.Coord.Z != 3 {
		t.Errorf("expected XYZ point with z=3, got %+v", p)
	}
}

func TestReadWKB_ISOCodes(t *testing.T) {
	g := &MultiPoint{Dims: XYZM, Points: []*Point{
		{Dims: XYZM, Coord: Coord{X: 1, Y: 2, Z: 3, M: 4}},
	}}
	data, err := WriteWKB(g, binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if code := binary.BigEndian.Uint32(data[1:5]); code != 3004 {
		t.Errorf("expected ISO code 3004, got %d", code)
	}

	back, err := ReadWKB(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, g) {
		t.Errorf("round trip mismatch: %#v", back)
	}
}

func TestReadWKB_EmptyPoint(t *testing.T) {
	data, err := WriteWKB(EmptyPoint(XY), binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	g, err := ReadWKB(data)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsEmpty() {
		t.Error("expected empty point")
	}
}

func TestReadWKB_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrGeometryDecode},
		{"bad byte order", []byte{0x07, 0, 0, 0, 1}, ErrGeometryDecode},
		{"unknown type", []byte{0x00, 0, 0, 0, 99}, ErrUnsupportedType},
		{"curve polygon", []byte{0x00, 0, 0, 0, 10}, ErrUnsupportedType},
		{"huge count", []byte{0x00, 0, 0, 0, 2, 0xFF, 0xFF, 0xFF, 0xFF}, ErrGeometryDecode},
		{"truncated point", []byte{0x00, 0, 0, 0, 1, 0, 0, 0}, ErrGeometryDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadWKB(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadWKB_WrongMemberType(t *testing.T) {
	// multi point holding a line string
	data := []byte{0x00}
	data = binary.BigEndian.AppendUint32(data, 4)
	data = binary.BigEndian.AppendUint32(data, 1)
	member, err := WriteWKB(&LineString{Points: []Coord{{X: 0, Y: 0}, {X: 1, Y: 1}}}, binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, member...)

	if _, err := ReadWKB(data); !errors.Is(err, ErrGeometryDecode) {
		t.Errorf("expected ErrGeometryDecode, got %v", err)
	}
}
