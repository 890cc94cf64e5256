package keel

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/NerdMeNot/keel/fixedpoint"
	"github.com/NerdMeNot/keel/internal/unsafecast"
	"github.com/NerdMeNot/keel/memory"
)

// Datum is an operand of an operation that accepts either a column or a
// broadcast scalar. It is implemented by ColumnView and *Scalar.
type Datum interface {
	Type() DataType
	isDatum()
}

// ============================================================================
// ColumnView
// ============================================================================

// ColumnView is a non-owning reference to a column or to a row range of one.
// It is cheap to copy and never computes a null count on construction.
//
// A view is valid only while the column it was taken from has not been
// released.
type ColumnView struct {
	typ  DataType
	size int

	// data holds exactly size fixed-width values, or the full chars buffer
	// for strings.
	data []byte
	// offsets holds size+1 entries into data for strings.
	offsets []int32

	mask       *memory.Bitmap
	maskOffset int
	nullCount  int

	life *lifetime
}

func (ColumnView) isDatum() {}

// Type returns the element type.
func (v ColumnView) Type() DataType { return v.typ }

// Size returns the number of rows.
func (v ColumnView) Size() int { return v.size }

// Nullable reports whether the view has a validity bitmap.
func (v ColumnView) Nullable() bool { return v.mask != nil }

// NullCount returns the number of null rows, counting the bitmap when the
// count is unknown.
func (v ColumnView) NullCount() int {
	if v.mask == nil {
		return 0
	}
	if v.nullCount != UnknownNullCount {
		return v.nullCount
	}
	return v.mask.CountUnset(v.maskOffset, v.maskOffset+v.size)
}

// HasNulls reports whether any row is null.
func (v ColumnView) HasNulls() bool { return v.NullCount() > 0 }

// IsValid reports whether row i is not null.
func (v ColumnView) IsValid(i int) bool {
	return v.mask == nil || bitutil.BitIsSet(v.mask.Bytes(), v.maskOffset+i)
}

// IsNull reports whether row i is null.
func (v ColumnView) IsNull(i int) bool { return !v.IsValid(i) }

// StringAt returns row i of a String view. Null rows return "".
func (v ColumnView) StringAt(i int) string {
	if !v.IsValid(i) {
		return ""
	}
	return string(v.stringBytes(i))
}

func (v ColumnView) stringBytes(i int) []byte {
	return v.data[v.offsets[i]:v.offsets[i+1]]
}

// charRange returns the span of data referenced by the view's rows.
func (v ColumnView) charRange() (begin, end int) {
	return int(v.offsets[0]), int(v.offsets[v.size])
}

// validate reports ErrViewExpired when the owning storage was released.
func (v ColumnView) validate() error {
	if !v.life.alive() {
		return ErrViewExpired
	}
	return nil
}

// slice returns rows [begin, end) of v. Bounds are checked by the caller.
func (v ColumnView) slice(begin, end int) ColumnView {
	out := v
	out.size = end - begin
	if v.typ.Kind == String {
		out.offsets = v.offsets[begin : end+1]
	} else {
		w := v.typ.Size()
		out.data = v.data[begin*w : end*w]
	}
	if v.mask != nil {
		out.maskOffset = v.maskOffset + begin
		out.nullCount = UnknownNullCount
		if begin == 0 && end == v.size {
			out.nullCount = v.nullCount
		}
	}
	return out
}

func (v ColumnView) String() string {
	return fmt.Sprintf("ColumnView(%s, size=%d, nullable=%t)", v.typ, v.size, v.Nullable())
}

// Values returns the values of a fixed-width view as a []T aliasing the
// view's storage. T must have the width of the view's type.
func Values[T FixedWidth](v ColumnView) []T {
	if int(unsafecast.Sizeof[T]()) != v.typ.Size() {
		panic(fmt.Sprintf("keel: %T values requested from a %s view", *new(T), v.typ))
	}
	return unsafecast.Slice[byte, T](v.data)
}

// Bools returns the rows of a Bool view. Null rows read as false.
func Bools(v ColumnView) []bool {
	raw := Values[uint8](v)
	out := make([]bool, len(raw))
	for i, b := range raw {
		out[i] = b != 0 && v.IsValid(i)
	}
	return out
}

// Strings returns the rows of a String view. Null rows read as "".
func Strings(v ColumnView) []string {
	out := make([]string, v.size)
	for i := range out {
		out[i] = v.StringAt(i)
	}
	return out
}

// Decimal32At returns row i of a Decimal32 view as a fixed-point value.
func Decimal32At(v ColumnView, i int) fixedpoint.FixedPoint[int32] {
	return fixedpoint.FromScaled(Values[int32](v)[i], fixedpoint.Scale(v.typ.Scale), fixedpoint.Base10)
}

// Decimal64At returns row i of a Decimal64 view as a fixed-point value.
func Decimal64At(v ColumnView, i int) fixedpoint.FixedPoint[int64] {
	return fixedpoint.FromScaled(Values[int64](v)[i], fixedpoint.Scale(v.typ.Scale), fixedpoint.Base10)
}

// ============================================================================
// MutableColumnView
// ============================================================================

// MutableColumnView is a view through which an owning column is written in
// place. Writes through it invalidate the owner's cached null count.
type MutableColumnView struct {
	ColumnView
	owner *Column
}

// SetValid sets the validity of row i. The view must be nullable.
func (m MutableColumnView) SetValid(i int, valid bool) {
	m.mask.Set(m.maskOffset+i, valid)
	m.owner.InvalidateNullCount()
}
