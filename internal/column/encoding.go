package column

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mathsigit/kudu/internal/types"
)

// WriteVarUInt writes a variable-length unsigned integer (same encoding as protobuf varint).
func WriteVarUInt(w io.Writer, v uint64) error {
	var buf [10]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

// ReadVarUInt reads a variable-length unsigned integer.
func ReadVarUInt(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// EncodeColumn encodes a column to binary format.
// Fixed-size types: raw little-endian contiguous bytes.
// String: VarInt(length) + raw bytes per string.
func EncodeColumn(col Column) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeColumnTo(&buf, col); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeColumnTo(w io.Writer, col Column) error {
	switch c := col.(type) {
	case *UInt8Column:
		_, err := w.Write(c.Data)
		return err
	case *UInt16Column:
		return writeFixed(w, c.Data)
	case *UInt32Column:
		return writeFixed(w, c.Data)
	case *UInt64Column:
		return writeFixed(w, c.Data)
	case *Int8Column:
		return writeFixed(w, c.Data)
	case *Int16Column:
		return writeFixed(w, c.Data)
	case *Int32Column:
		return writeFixed(w, c.Data)
	case *Int64Column:
		return writeFixed(w, c.Data)
	case *Float32Column:
		return writeFixed(w, c.Data)
	case *Float64Column:
		return writeFixed(w, c.Data)
	case *DateTimeColumn:
		return writeFixed(w, c.Data)
	case *StringColumn:
		for _, s := range c.Data {
			if err := WriteVarUInt(w, uint64(len(s))); err != nil {
				return err
			}
			if _, err := w.Write([]byte(s)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported column type for encoding: %T", col)
	}
}

func writeFixed[T any](w io.Writer, data []T) error {
	return binary.Write(w, binary.LittleEndian, data)
}

// DecodeColumn decodes a column from binary data.
func DecodeColumn(dt types.DataType, data []byte, numRows int) (Column, error) {
	r := bytes.NewReader(data)
	switch dt {
	case types.TypeUInt8:
		col := &UInt8Column{Data: make([]uint8, numRows)}
		_, err := io.ReadFull(r, col.Data)
		return col, err
	case types.TypeUInt16:
		col := &UInt16Column{Data: make([]uint16, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeUInt32:
		col := &UInt32Column{Data: make([]uint32, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeUInt64:
		col := &UInt64Column{Data: make([]uint64, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeInt8:
		col := &Int8Column{Data: make([]int8, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeInt16:
		col := &Int16Column{Data: make([]int16, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeInt32:
		col := &Int32Column{Data: make([]int32, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeInt64:
		col := &Int64Column{Data: make([]int64, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeFloat32:
		col := &Float32Column{Data: make([]float32, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeFloat64:
		col := &Float64Column{Data: make([]float64, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeDateTime:
		col := &DateTimeColumn{Data: make([]uint32, numRows)}
		return col, readFixed(r, col.Data)
	case types.TypeString:
		col := &StringColumn{Data: make([]string, 0, numRows)}
		for i := 0; i < numRows; i++ {
			length, err := ReadVarUInt(r)
			if err != nil {
				return nil, fmt.Errorf("reading string length at row %d: %w", i, err)
			}
			buf := make([]byte, length)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("reading string data at row %d: %w", i, err)
			}
			col.Data = append(col.Data, string(buf))
		}
		return col, nil
	default:
		return nil, fmt.Errorf("unsupported data type for decoding: %d", dt)
	}
}

func readFixed[T any](r io.Reader, data []T) error {
	return binary.Read(r, binary.LittleEndian, data)
}

// EncodeValue encodes a single value to binary format.
func EncodeValue(w io.Writer, dt types.DataType, v types.Value) error {
	switch dt {
	case types.TypeUInt8:
		return binary.Write(w, binary.LittleEndian, v.(uint8))
	case types.TypeUInt16:
		return binary.Write(w, binary.LittleEndian, v.(uint16))
	case types.TypeUInt32:
		return binary.Write(w, binary.LittleEndian, v.(uint32))
	case types.TypeUInt64:
		return binary.Write(w, binary.LittleEndian, v.(uint64))
	case types.TypeInt8:
		return binary.Write(w, binary.LittleEndian, v.(int8))
	case types.TypeInt16:
		return binary.Write(w, binary.LittleEndian, v.(int16))
	case types.TypeInt32:
		return binary.Write(w, binary.LittleEndian, v.(int32))
	case types.TypeInt64:
		return binary.Write(w, binary.LittleEndian, v.(int64))
	case types.TypeFloat32:
		return binary.Write(w, binary.LittleEndian, v.(float32))
	case types.TypeFloat64:
		return binary.Write(w, binary.LittleEndian, v.(float64))
	case types.TypeDateTime:
		return binary.Write(w, binary.LittleEndian, v.(uint32))
	case types.TypeString:
		s := v.(string)
		if err := WriteVarUInt(w, uint64(len(s))); err != nil {
			return err
		}
		_, err := w.Write([]byte(s))
		return err
	default:
		return fmt.Errorf("unsupported type for EncodeValue: %d", dt)
	}
}

// EncodeValueBytes encodes a single value and returns the raw bytes.
func EncodeValueBytes(dt types.DataType, v types.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeValue(&buf, dt, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a single value from binary format.
func DecodeValue(r io.Reader, dt types.DataType) (types.Value, error) {
	switch dt {
	case types.TypeUInt8:
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeUInt16:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeUInt32:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeUInt64:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeInt8:
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeInt16:
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeInt32:
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeInt64:
		var v int64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeFloat32:
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeFloat64:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeDateTime:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case types.TypeString:
		br, ok := r.(io.ByteReader)
		if !ok {
			br = &byteReaderWrapper{r: r}
		}
		length, err := ReadVarUInt(br)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return string(buf), nil
	default:
		return nil, fmt.Errorf("unsupported type for DecodeValue: %d", dt)
	}
}

type byteReaderWrapper struct{ r io.Reader }

func (b *byteReaderWrapper) ReadByte() (byte, error) {
	var p [1]byte
	_, err := io.ReadFull(b.r, p[:])
	return p[0], err
}
