package types

import (
	"fmt"
	"math"
)

// Value represents a single value. Concrete types use native Go types:
//
//	UInt8 -> uint8, UInt16 -> uint16, ..., String -> string, DateTime -> uint32
type Value = interface{}

// ToInt64 converts a numeric value to int64.
func ToInt64(dt DataType, v Value) (int64, error) {
	switch dt {
	case TypeUInt8:
		return int64(v.(uint8)), nil
	case TypeUInt16:
		return int64(v.(uint16)), nil
	case TypeUInt32:
		return int64(v.(uint32)), nil
	case TypeUInt64:
		return int64(v.(uint64)), nil
	case TypeInt8:
		return int64(v.(int8)), nil
	case TypeInt16:
		return int64(v.(int16)), nil
	case TypeInt32:
		return int64(v.(int32)), nil
	case TypeInt64:
		return v.(int64), nil
	case TypeFloat32:
		return int64(v.(float32)), nil
	case TypeFloat64:
		return int64(v.(float64)), nil
	case TypeDateTime:
		return int64(v.(uint32)), nil
	default:
		return 0, fmt.Errorf("cannot convert %s to int64", dt.Name())
	}
}

// CompareValues compares two values of the same DataType.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func CompareValues(dt DataType, a, b Value) int {
	switch dt {
	case TypeUInt8:
		return cmpOrdered(a.(uint8), b.(uint8))
	case TypeUInt16:
		return cmpOrdered(a.(uint16), b.(uint16))
	case TypeUInt32:
		return cmpOrdered(a.(uint32), b.(uint32))
	case TypeUInt64:
		return cmpOrdered(a.(uint64), b.(uint64))
	case TypeInt8:
		return cmpOrdered(a.(int8), b.(int8))
	case TypeInt16:
		return cmpOrdered(a.(int16), b.(int16))
	case TypeInt32:
		return cmpOrdered(a.(int32), b.(int32))
	case TypeInt64:
		return cmpOrdered(a.(int64), b.(int64))
	case TypeFloat32:
		return cmpOrdered(a.(float32), b.(float32))
	case TypeFloat64:
		return cmpOrdered(a.(float64), b.(float64))
	case TypeString:
		return cmpOrdered(a.(string), b.(string))
	case TypeDateTime:
		return cmpOrdered(a.(uint32), b.(uint32))
	default:
		return 0
	}
}

type ordered interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64 | ~string
}

func cmpOrdered[T ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// CoerceValue converts a loosely-typed literal (e.g. an int64 or string from
// a caller) into the native representation for dt. Returns false when the
// value cannot represent the target type without loss of meaning, which
// includes integers outside the target's range: 300 is not a uint8 and must
// never be silently truncated into one.
func CoerceValue(dt DataType, v Value) (Value, bool) {
	switch dt {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeFloat32:
		if f, ok := toFloat(v); ok {
			return float32(f), true
		}
		return nil, false
	case TypeFloat64:
		if f, ok := toFloat(v); ok {
			return f, true
		}
		return nil, false
	case TypeUInt64:
		// Native uint64 values above MaxInt64 have no int64 form.
		if x, ok := v.(uint64); ok {
			return x, true
		}
	}
	i, ok := toInt(v)
	if !ok {
		return nil, false
	}
	switch dt {
	case TypeUInt8:
		if i < 0 || i > math.MaxUint8 {
			return nil, false
		}
		return uint8(i), true
	case TypeUInt16:
		if i < 0 || i > math.MaxUint16 {
			return nil, false
		}
		return uint16(i), true
	case TypeUInt32:
		if i < 0 || i > math.MaxUint32 {
			return nil, false
		}
		return uint32(i), true
	case TypeUInt64:
		if i < 0 {
			return nil, false
		}
		return uint64(i), true
	case TypeInt8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, false
		}
		return int8(i), true
	case TypeInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, false
		}
		return int16(i), true
	case TypeInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, false
		}
		return int32(i), true
	case TypeInt64:
		return i, true
	case TypeDateTime:
		if i < 0 || i > math.MaxUint32 {
			return nil, false
		}
		return uint32(i), true
	default:
		return nil, false
	}
}

func toInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	}
	return 0, false
}

func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// ValueToString converts a value to its string representation.
func ValueToString(dt DataType, v Value) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
