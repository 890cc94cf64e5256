package keel

import (
	"fmt"
	"unsafe"

	"github.com/NerdMeNot/keel/fixedpoint"
	"github.com/NerdMeNot/keel/internal/unsafecast"
)

// Scalar is a single typed value, possibly null, broadcast by operations
// such as Shift, ScatterScalars and CopyIfElse.
type Scalar struct {
	typ   DataType
	valid bool
	bits  uint64 // fixed-width payload in host byte order
	str   string
}

func (*Scalar) isDatum() {}

// NewScalar creates a valid scalar of T's natural type.
func NewScalar[T FixedWidth](v T) *Scalar {
	s, _ := NewTypedScalar(TypeOf(kindOf[T]()), v)
	return s
}

// NewTypedScalar creates a valid scalar of an explicit fixed-width type.
func NewTypedScalar[T FixedWidth](typ DataType, v T) (*Scalar, error) {
	if !typ.IsFixedWidth() {
		return nil, unsupported("%s is not a fixed-width type", typ)
	}
	if int(unsafecast.Sizeof[T]()) != typ.Size() {
		return nil, typeMismatch("%T value cannot back a %s scalar", v, typ)
	}
	s := &Scalar{typ: typ, valid: true}
	*(*T)(unsafe.Pointer(&s.bits)) = v
	return s, nil
}

// NewBoolScalar creates a valid Bool scalar.
func NewBoolScalar(v bool) *Scalar {
	var b uint8
	if v {
		b = 1
	}
	s, _ := NewTypedScalar(TypeOf(Bool), b)
	return s
}

// NewStringScalar creates a valid String scalar.
func NewStringScalar(v string) *Scalar {
	return &Scalar{typ: TypeOf(String), valid: true, str: v}
}

// NewDecimalScalar creates a Decimal32 or Decimal64 scalar.
func NewDecimalScalar[R fixedpoint.Rep](v fixedpoint.FixedPoint[R]) (*Scalar, error) {
	if v.Radix() != fixedpoint.Base10 {
		return nil, unsupported("decimal columns are base 10, got radix %d", v.Radix())
	}
	kind := Decimal64
	if unsafecast.Sizeof[R]() == 4 {
		kind = Decimal32
	}
	return NewTypedScalar(DecimalType(kind, int32(v.Scale())), v.Rep())
}

// NullScalar creates a null scalar of typ.
func NullScalar(typ DataType) *Scalar {
	return &Scalar{typ: typ}
}

// Type returns the scalar's type.
func (s *Scalar) Type() DataType { return s.typ }

// IsValid reports whether the scalar is not null.
func (s *Scalar) IsValid() bool { return s.valid }

// StringValue returns the value of a String scalar.
func (s *Scalar) StringValue() string { return s.str }

func (s *Scalar) String() string {
	if !s.valid {
		return fmt.Sprintf("Scalar(%s, null)", s.typ)
	}
	if s.typ.Kind == String {
		return fmt.Sprintf("Scalar(%s, %q)", s.typ, s.str)
	}
	return fmt.Sprintf("Scalar(%s, %#x)", s.typ, s.bits)
}

// ScalarValue returns the payload of a fixed-width scalar as T. T must have
// the width of the scalar's type.
func ScalarValue[T FixedWidth](s *Scalar) T {
	if int(unsafecast.Sizeof[T]()) != s.typ.Size() {
		panic(fmt.Sprintf("keel: %T value requested from a %s scalar", *new(T), s.typ))
	}
	return scalarValue[T](s)
}

func scalarValue[T FixedWidth](s *Scalar) T {
	return *(*T)(unsafe.Pointer(&s.bits))
}
