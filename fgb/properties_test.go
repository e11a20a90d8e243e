package fgb

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected flattypes.ColumnType
	}{
		{true, flattypes.ColumnTypeBool},
		{42, flattypes.ColumnTypeInt},
		{1 << 40, flattypes.ColumnTypeLong},
		{int64(42), flattypes.ColumnTypeLong},
		{uint16(7), flattypes.ColumnTypeUInt},
		{uint64(7), flattypes.ColumnTypeULong},
		{float32(1.5), flattypes.ColumnTypeFloat},
		{3.0, flattypes.ColumnTypeLong},
		{3.5, flattypes.ColumnTypeDouble},
		{"hello", flattypes.ColumnTypeString},
		{[]byte{1, 2}, flattypes.ColumnTypeBinary},
		{map[string]interface{}{"a": 1}, flattypes.ColumnTypeJson},
		{[]interface{}{1, 2}, flattypes.ColumnTypeJson},
	}

	for _, tt := range tests {
		if got := inferColumnType(tt.value); got != tt.expected {
			t.Errorf("inferColumnType(%#v) = %s, expected %s", tt.value,
				flattypes.EnumNamesColumnType[got], flattypes.EnumNamesColumnType[tt.expected])
		}
	}
}

func TestPromoteColumnType(t *testing.T) {
	tests := []struct {
		a, b, expected flattypes.ColumnType
	}{
		{flattypes.ColumnTypeInt, flattypes.ColumnTypeInt, flattypes.ColumnTypeInt},
		{flattypes.ColumnTypeInt, flattypes.ColumnTypeLong, flattypes.ColumnTypeLong},
		{flattypes.ColumnTypeLong, flattypes.ColumnTypeDouble, flattypes.ColumnTypeDouble},
		{flattypes.ColumnTypeString, flattypes.ColumnTypeInt, flattypes.ColumnTypeString},
		{flattypes.ColumnTypeBool, flattypes.ColumnTypeInt, flattypes.ColumnTypeJson},
		{flattypes.ColumnTypeJson, flattypes.ColumnTypeDouble, flattypes.ColumnTypeJson},
	}

	for _, tt := range tests {
		got := promoteColumnType(tt.a, tt.b)
		if got != tt.expected {
			t.Errorf("promoteColumnType(%s, %s) = %s, expected %s",
				flattypes.EnumNamesColumnType[tt.a], flattypes.EnumNamesColumnType[tt.b],
				flattypes.EnumNamesColumnType[got], flattypes.EnumNamesColumnType[tt.expected])
		}
	}
}

func TestInferSchema(t *testing.T) {
	props := []map[string]interface{}{
		{"name": "a", "pop": 10.0, "fid": int64(1)},
		{"name": "b", "pop": 12.5, "extra": nil, "fid": int64(2)},
		nil,
	}

	s := inferSchema(props, DefaultIDColumn)

	expected := []string{"fid", "extra", "name", "pop"}
	if !slices.Equal(s.names, expected) {
		t.Fatalf("expected columns %v, got %v", expected, s.names)
	}
	types := []flattypes.ColumnType{
		flattypes.ColumnTypeLong,
		flattypes.ColumnTypeString,
		flattypes.ColumnTypeString,
		flattypes.ColumnTypeDouble,
	}
	if !slices.Equal(s.types, types) {
		t.Errorf("unexpected column types %v", s.types)
	}
	if s.index["pop"] != 3 {
		t.Errorf("expected pop at 3, got %d", s.index["pop"])
	}
}

func TestInferSchema_StringID(t *testing.T) {
	s := inferSchema([]map[string]interface{}{{"fid": "abc"}}, DefaultIDColumn)
	if s.types[0] != flattypes.ColumnTypeLong {
		t.Errorf("expected the id column to stay Long, got %s", flattypes.EnumNamesColumnType[s.types[0]])
	}
}

func TestSchema_RoundTrip(t *testing.T) {
	props := map[string]interface{}{
		"fid":   int64(7),
		"flag":  true,
		"name":  "héllo",
		"pop":   12.5,
		"tags":  []interface{}{"x", "y"},
		"blob":  []byte{0xde, 0xad},
		"empty": nil,
	}
	s := inferSchema([]map[string]interface{}{props}, DefaultIDColumn)

	data, err := s.encode(props)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := s.decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	expected := map[string]interface{}{
		"fid":  int64(7),
		"flag": true,
		"name": "héllo",
		"pop":  12.5,
		"tags": []interface{}{"x", "y"},
		"blob": []byte{0xde, 0xad},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestSchema_EncodeByColumnType(t *testing.T) {
	s := newSchema()
	s.add("small", flattypes.ColumnTypeShort)
	s.add("ratio", flattypes.ColumnTypeFloat)
	s.add("label", flattypes.ColumnTypeString)

	data, err := s.encode(map[string]interface{}{"small": 3.0, "ratio": 2, "label": 5})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := s.decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	expected := map[string]interface{}{"small": int16(3), "ratio": float32(2), "label": "5"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestSchema_EncodeMismatch(t *testing.T) {
	s := newSchema()
	s.add("flag", flattypes.ColumnTypeBool)

	_, err := s.encode(map[string]interface{}{"flag": "yes"})
	if !errors.Is(err, ErrPropertyMismatch) {
		t.Errorf("expected ErrPropertyMismatch, got %v", err)
	}
}

func TestSchema_DecodeInvalid(t *testing.T) {
	s := newSchema()
	s.add("id", flattypes.ColumnTypeLong)
	s.add("name", flattypes.ColumnTypeString)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated index", []byte{0}},
		{"column out of range", []byte{9, 0}},
		{"truncated long", []byte{0, 0, 1, 2, 3}},
		{"string overruns", []byte{1, 0, 10, 0, 0, 0, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.decode(tt.data); !errors.Is(err, ErrInvalidData) {
				t.Errorf("expected ErrInvalidData, got %v", err)
			}
		})
	}

	if props, err := s.decode(nil); err != nil || props != nil {
		t.Errorf("expected nothing for empty data, got %v, %v", props, err)
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected int64
		ok       bool
	}{
		{42, 42, true},
		{int32(-3), -3, true},
		{uint8(200), 200, true},
		{3.9, 3, true},
		{"7", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := toInt64(tt.value)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("toInt64(%#v) = %d, %v; expected %d, %v", tt.value, got, ok, tt.expected, tt.ok)
		}
	}

	if _, ok := toUint64(-1); ok {
		t.Error("expected negative values to fail toUint64")
	}
}
