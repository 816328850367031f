package hexstat

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// Column layout of result files. The order is the on-disk column index.
var resultColumns = []struct {
	name  string
	title string
	typ   flattypes.ColumnType
}{
	{"h3", "H3 cell", flattypes.ColumnTypeString},
	{"res", "H3 resolution", flattypes.ColumnTypeInt},
	{"value", "Statistic", flattypes.ColumnTypeDouble},
	{"pixels", "Valid pixels", flattypes.ColumnTypeLong},
}

// buildResultColumns creates the FlatGeobuf column schema for results.
func buildResultColumns(builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(resultColumns))
	for _, rc := range resultColumns {
		col := writer.NewColumn(builder)
		col.SetName(rc.name)
		col.SetTitle(rc.title)
		col.SetType(rc.typ)
		col.SetNullable(false)
		columns = append(columns, col)
	}
	return columns
}

// encodeResult encodes r in FlatGeobuf property format: for each column a
// little-endian uint16 index followed by the value. Strings carry a uint32
// byte length prefix.
func encodeResult(r StatResult) []byte {
	var buf bytes.Buffer

	writeIndex(&buf, 0)
	writeUint32(&buf, uint32(len(r.Cell)))
	buf.WriteString(r.Cell)

	writeIndex(&buf, 1)
	writeUint32(&buf, uint32(int32(r.Resolution)))

	writeIndex(&buf, 2)
	writeUint64(&buf, math.Float64bits(r.Value))

	writeIndex(&buf, 3)
	writeUint64(&buf, uint64(int64(r.Pixels)))

	return buf.Bytes()
}

func writeIndex(buf *bytes.Buffer, i uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], i)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// decodeProperties decodes FlatGeobuf binary properties into a map keyed by
// column name. Decoding stops at the first malformed value.
func decodeProperties(data []byte, header *flattypes.Header) map[string]interface{} {
	if len(data) == 0 || header == nil {
		return nil
	}

	props := make(map[string]interface{})
	offset := 0
	for offset+2 <= len(data) {
		colIndex := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2

		var col flattypes.Column
		if colIndex >= header.ColumnsLength() || !header.Columns(&col, colIndex) {
			break
		}

		value, n := readPropertyValue(data[offset:], col.Type())
		if n == 0 {
			break
		}
		offset += n
		props[string(col.Name())] = value
	}
	return props
}

// readPropertyValue reads one value and returns it with its encoded size.
// A size of 0 means the value could not be read.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (interface{}, int) {
	fixed := map[flattypes.ColumnType]int{
		flattypes.ColumnTypeBool: 1, flattypes.ColumnTypeByte: 1, flattypes.ColumnTypeUByte: 1,
		flattypes.ColumnTypeShort: 2, flattypes.ColumnTypeUShort: 2,
		flattypes.ColumnTypeInt: 4, flattypes.ColumnTypeUInt: 4, flattypes.ColumnTypeFloat: 4,
		flattypes.ColumnTypeLong: 8, flattypes.ColumnTypeULong: 8, flattypes.ColumnTypeDouble: 8,
	}
	if size, ok := fixed[colType]; ok && len(data) < size {
		return nil, 0
	}

	switch colType {
	case flattypes.ColumnTypeBool:
		return data[0] != 0, 1
	case flattypes.ColumnTypeByte:
		return int64(int8(data[0])), 1
	case flattypes.ColumnTypeUByte:
		return int64(data[0]), 1
	case flattypes.ColumnTypeShort:
		return int64(int16(binary.LittleEndian.Uint16(data))), 2
	case flattypes.ColumnTypeUShort:
		return int64(binary.LittleEndian.Uint16(data)), 2
	case flattypes.ColumnTypeInt:
		return int64(int32(binary.LittleEndian.Uint32(data))), 4
	case flattypes.ColumnTypeUInt:
		return int64(binary.LittleEndian.Uint32(data)), 4
	case flattypes.ColumnTypeLong:
		return int64(binary.LittleEndian.Uint64(data)), 8
	case flattypes.ColumnTypeULong:
		return binary.LittleEndian.Uint64(data), 8
	case flattypes.ColumnTypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4
	case flattypes.ColumnTypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime,
		flattypes.ColumnTypeJson, flattypes.ColumnTypeBinary:
		if len(data) < 4 {
			return nil, 0
		}
		n := int(binary.LittleEndian.Uint32(data))
		if len(data) < 4+n {
			return nil, 0
		}
		if colType == flattypes.ColumnTypeBinary {
			return append([]byte(nil), data[4:4+n]...), 4 + n
		}
		return string(data[4 : 4+n]), 4 + n
	default:
		return nil, 0
	}
}

// resultFromProperties rebuilds a StatResult from decoded properties.
func resultFromProperties(props map[string]interface{}) (StatResult, bool) {
	cell, ok := props["h3"].(string)
	if !ok || cell == "" {
		return StatResult{}, false
	}
	r := StatResult{Cell: cell}
	if v, ok := props["res"].(int64); ok {
		r.Resolution = int(v)
	}
	if v, ok := props["value"].(float64); ok {
		r.Value = v
	}
	if v, ok := props["pixels"].(int64); ok {
		r.Pixels = int(v)
	}
	return r, true
}
