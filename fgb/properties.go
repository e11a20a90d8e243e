package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// schema is the ordered property column list of a table.
type schema struct {
	names []string
	types []flattypes.ColumnType
	index map[string]int
}

func newSchema() *schema {
	return &schema{index: make(map[string]int)}
}

// add appends a column, or widens the type of an existing one.
func (s *schema) add(name string, t flattypes.ColumnType) {
	if i, ok := s.index[name]; ok {
		s.types[i] = promoteColumnType(s.types[i], t)
		return
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	s.types = append(s.types, t)
}

func (s *schema) len() int { return len(s.names) }

// inferSchema builds the columns for a set of property maps. The id column,
// when set, comes first; the rest are sorted by name.
func inferSchema(props []map[string]interface{}, idColumn string) *schema {
	types := make(map[string]flattypes.ColumnType)
	for _, p := range props {
		for name, value := range p {
			if value == nil {
				if _, ok := types[name]; !ok {
					types[name] = flattypes.ColumnTypeString
				}
				continue
			}
			t := inferColumnType(value)
			if existing, ok := types[name]; ok {
				t = promoteColumnType(existing, t)
			}
			types[name] = t
		}
	}

	s := newSchema()
	if idColumn != "" {
		t, ok := types[idColumn]
		if !ok || !isInteger(t) {
			t = flattypes.ColumnTypeLong
		}
		s.add(idColumn, t)
		delete(types, idColumn)
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		s.add(name, types[name])
	}
	return s
}

// headerSchema reads the columns of a file header.
func headerSchema(h *flattypes.Header) *schema {
	s := newSchema()
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			s.add(string(col.Name()), col.Type())
		}
	}
	return s
}

// columns creates the header columns.
func (s *schema) columns(builder *flatbuffers.Builder) []*writer.Column {
	cols := make([]*writer.Column, len(s.names))
	for i, name := range s.names {
		col := writer.NewColumn(builder)
		col.SetName(name)
		col.SetTitle(name)
		col.SetType(s.types[i])
		col.SetNullable(true)
		cols[i] = col
	}
	return cols
}

// encode writes props in column order as [uint16 column][value] pairs.
// Null values and unknown names are left out.
func (s *schema) encode(props map[string]interface{}) ([]byte, error) {
	if len(props) == 0 || s.len() == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for i, name := range s.names {
		value, ok := props[name]
		if !ok || value == nil {
			continue
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(i))
		if err := writeValue(&buf, value, s.types[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// decode reads an encoded property buffer.
func (s *schema) decode(data []byte) (map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}

	props := make(map[string]interface{})
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index", ErrInvalidData)
		}
		i := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if i >= s.len() {
			return nil, fmt.Errorf("%w: column %d out of range", ErrInvalidData, i)
		}

		value, n, err := readValue(data[offset:], s.types[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", s.names[i], err)
		}
		offset += n
		props[s.names[i]] = value
	}
	return props, nil
}

func writeValue(buf *bytes.Buffer, value interface{}, t flattypes.ColumnType) error {
	le := binary.LittleEndian
	mismatch := func() error {
		return fmt.Errorf("%w: %T as %s", ErrPropertyMismatch, value, flattypes.EnumNamesColumnType[t])
	}

	switch t {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return mismatch()
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		v, ok := toInt64(value)
		if !ok {
			return mismatch()
		}
		buf.WriteByte(byte(v))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		v, ok := toInt64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint16(v))

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		v, ok := toInt64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint32(v))

	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, v)

	case flattypes.ColumnTypeULong:
		v, ok := toUint64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, v)

	case flattypes.ColumnTypeFloat:
		v, ok := toFloat64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, float32(v))

	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, v)

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		s := toString(value)
		_ = binary.Write(buf, le, uint32(len(s)))
		buf.WriteString(s)

	case flattypes.ColumnTypeJson:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPropertyMismatch, err)
		}
		_ = binary.Write(buf, le, uint32(len(b)))
		buf.Write(b)

	case flattypes.ColumnTypeBinary:
		b, ok := value.([]byte)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint32(len(b)))
		buf.Write(b)

	default:
		return mismatch()
	}
	return nil
}

// readValue reads one value and returns it with the number of bytes used.
func readValue(data []byte, t flattypes.ColumnType) (interface{}, int, error) {
	le := binary.LittleEndian
	need := func(n int) error {
		if len(data) < n {
			return fmt.Errorf("%w: truncated %s value", ErrInvalidData, flattypes.EnumNamesColumnType[t])
		}
		return nil
	}

	switch t {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0] != 0, 1, nil
	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int8(data[0]), 1, nil
	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0], 1, nil
	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int16(le.Uint16(data)), 2, nil
	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return le.Uint16(data), 2, nil
	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(le.Uint32(data)), 4, nil
	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return le.Uint32(data), 4, nil
	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(le.Uint64(data)), 8, nil
	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return le.Uint64(data), 8, nil
	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(le.Uint32(data)), 4, nil
	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(le.Uint64(data)), 8, nil
	}

	// The remaining types are length prefixed.
	if err := need(4); err != nil {
		return nil, 0, err
	}
	n := int(le.Uint32(data))
	if len(data)-4 < n {
		return nil, 0, fmt.Errorf("%w: %s value of %d bytes overruns buffer", ErrInvalidData, flattypes.EnumNamesColumnType[t], n)
	}
	raw := data[4 : 4+n]

	switch t {
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		return string(raw), 4 + n, nil
	case flattypes.ColumnTypeJson:
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		return v, 4 + n, nil
	case flattypes.ColumnTypeBinary:
		return slices.Clone(raw), 4 + n, nil
	}
	return nil, 0, fmt.Errorf("%w: column type %d", ErrInvalidData, t)
}

// inferColumnType picks the column type for a Go value.
func inferColumnType(value interface{}) flattypes.ColumnType {
	switch v := value.(type) {
	case bool:
		return flattypes.ColumnTypeBool
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return flattypes.ColumnTypeInt
		}
		return flattypes.ColumnTypeLong
	case int8, int16, int32:
		return flattypes.ColumnTypeInt
	case int64:
		return flattypes.ColumnTypeLong
	case uint, uint8, uint16, uint32:
		return flattypes.ColumnTypeUInt
	case uint64:
		return flattypes.ColumnTypeULong
	case float32:
		return flattypes.ColumnTypeFloat
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	case []byte:
		return flattypes.ColumnTypeBinary
	}
	return flattypes.ColumnTypeJson
}

var numericRank = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   0,
	flattypes.ColumnTypeByte:   1,
	flattypes.ColumnTypeUByte:  2,
	flattypes.ColumnTypeShort:  3,
	flattypes.ColumnTypeUShort: 4,
	flattypes.ColumnTypeInt:    5,
	flattypes.ColumnTypeUInt:   6,
	flattypes.ColumnTypeLong:   7,
	flattypes.ColumnTypeULong:  8,
	flattypes.ColumnTypeFloat:  9,
	flattypes.ColumnTypeDouble: 10,
}

// promoteColumnType returns a type able to hold values of both a and b.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if a == flattypes.ColumnTypeString || b == flattypes.ColumnTypeString {
		return flattypes.ColumnTypeString
	}

	ra, okA := numericRank[a]
	rb, okB := numericRank[b]
	if !okA || !okB || a == flattypes.ColumnTypeBool || b == flattypes.ColumnTypeBool {
		return flattypes.ColumnTypeJson
	}
	if ra > rb {
		return a
	}
	return b
}

func isInteger(t flattypes.ColumnType) bool {
	r, ok := numericRank[t]
	return ok && r >= 1 && r <= 8
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	if u, ok := v.(uint64); ok {
		return u, true
	}
	i, ok := toInt64(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
