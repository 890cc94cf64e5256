package keel

import "fmt"

// Kind identifies the logical element type of a column.
type Kind uint8

const (
	// Empty is the kind of the zero-column concatenation result.
	Empty Kind = iota

	// Bool is stored as one byte per row; any non-zero byte is true.
	Bool

	// Numeric types
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64

	// Temporal types, stored as int64 nanoseconds
	Timestamp
	Duration

	// Fixed-point decimals; the DataType carries the scale
	Decimal32
	Decimal64

	// Variable-length UTF-8 strings
	String

	// Dictionary-encoded and nested types. They can be described but no
	// restructuring operation accepts them.
	Dictionary
	List
	Struct
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Bool:
		return "Bool"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case UInt8:
		return "UInt8"
	case UInt16:
		return "UInt16"
	case UInt32:
		return "UInt32"
	case UInt64:
		return "UInt64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Timestamp:
		return "Timestamp"
	case Duration:
		return "Duration"
	case Decimal32:
		return "Decimal32"
	case Decimal64:
		return "Decimal64"
	case String:
		return "String"
	case Dictionary:
		return "Dictionary"
	case List:
		return "List"
	case Struct:
		return "Struct"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// IsFixedWidth returns true if every element of the kind occupies the same
// number of bytes.
func (k Kind) IsFixedWidth() bool {
	return k.Size() > 0
}

// IsInteger returns true if the kind is a plain integer type
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}

// IsNested returns true if the kind is dictionary-encoded or nested
func (k Kind) IsNested() bool {
	switch k {
	case Dictionary, List, Struct:
		return true
	default:
		return false
	}
}

// IsDecimal returns true for fixed-point kinds
func (k Kind) IsDecimal() bool {
	return k == Decimal32 || k == Decimal64
}

// Size returns the size in bytes of one element, or -1 for variable-width
// kinds.
func (k Kind) Size() int {
	switch k {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32, Decimal32:
		return 4
	case Int64, UInt64, Float64, Timestamp, Duration, Decimal64:
		return 8
	case String, Dictionary, List, Struct:
		return -1
	default:
		return 0
	}
}

// DataType is a Kind plus the scale of fixed-point kinds.
type DataType struct {
	Kind  Kind
	Scale int32
}

// TypeOf returns the DataType of a kind without a scale.
func TypeOf(k Kind) DataType {
	return DataType{Kind: k}
}

// DecimalType returns a fixed-point DataType.
func DecimalType(k Kind, scale int32) DataType {
	return DataType{Kind: k, Scale: scale}
}

// Size returns the element width in bytes; see Kind.Size.
func (t DataType) Size() int { return t.Kind.Size() }

// IsFixedWidth reports whether the type is fixed width.
func (t DataType) IsFixedWidth() bool { return t.Kind.IsFixedWidth() }

func (t DataType) String() string {
	if t.Kind.IsDecimal() {
		return fmt.Sprintf("%s(scale=%d)", t.Kind, t.Scale)
	}
	return t.Kind.String()
}

// FixedWidth is the set of Go types that back fixed-width columns.
type FixedWidth interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// kindOf returns the natural Kind of a Go element type.
func kindOf[T FixedWidth]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return UInt8
	case uint16:
		return UInt16
	case uint32:
		return UInt32
	case uint64:
		return UInt64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		return Empty
	}
}
