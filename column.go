package keel

import (
	"math"

	"go.uber.org/atomic"

	"github.com/NerdMeNot/keel/fixedpoint"
	"github.com/NerdMeNot/keel/internal/unsafecast"
	"github.com/NerdMeNot/keel/memory"
)

// UnknownNullCount marks a null count that has not been computed yet.
const UnknownNullCount = -1

// lifetime is shared by an owner and every view derived from it.
type lifetime struct {
	released atomic.Bool
}

func newLifetime() *lifetime { return &lifetime{} }

func (l *lifetime) alive() bool {
	return l == nil || !l.released.Load()
}

func (l *lifetime) end() {
	if l != nil {
		l.released.Store(true)
	}
}

// ============================================================================
// Column
// ============================================================================

// Column is an owning, homogeneous sequence of values with an optional
// validity bitmap. Fixed-width values live in one buffer; strings use an
// int32 offsets buffer (size+1 entries) and a chars buffer.
//
// A column is not safe for concurrent mutation. Views of a column must not
// be used after Release.
type Column struct {
	typ       DataType
	size      int
	data      *memory.Buffer // values, or chars for strings
	offsets   *memory.Buffer // strings only
	mask      *memory.Bitmap // nil when the column cannot hold nulls
	nullCount int
	life      *lifetime
}

// newFixedColumn allocates an uninitialized fixed-width column of n rows.
// The mask, when requested, is left for the caller to fill.
func newFixedColumn(o options, typ DataType, n int, nullable bool) (*Column, error) {
	data, err := o.allocate(memory.AlignedSize(n * typ.Size()))
	if err != nil {
		return nil, err
	}
	col := &Column{typ: typ, size: n, data: data, life: newLifetime()}
	if nullable {
		mask, err := o.allocateMask(n, memory.Uninitialized)
		if err != nil {
			data.Release()
			return nil, err
		}
		col.mask = mask
	}
	return col, nil
}

// NewColumn copies values into a new column. valid may be nil for a column
// without a validity bitmap; otherwise it must have one entry per value.
func NewColumn[T FixedWidth](values []T, valid []bool, opts ...Option) (*Column, error) {
	return NewTypedColumn(TypeOf(kindOf[T]()), values, valid, opts...)
}

// NewTypedColumn is like NewColumn with an explicit logical type, for
// example a Timestamp column backed by int64 values.
func NewTypedColumn[T FixedWidth](typ DataType, values []T, valid []bool, opts ...Option) (*Column, error) {
	if !typ.IsFixedWidth() {
		return nil, unsupported("%s is not a fixed-width type", typ)
	}
	if int(unsafecast.Sizeof[T]()) != typ.Size() {
		return nil, typeMismatch("%T values cannot back a %s column", *new(T), typ)
	}
	if valid != nil && len(valid) != len(values) {
		return nil, invalidArgument("%d validity entries for %d values", len(valid), len(values))
	}

	col, err := newFixedColumn(newOptions(opts), typ, len(values), valid != nil)
	if err != nil {
		return nil, err
	}
	copy(memory.Values[T](col.data), values)
	col.setValidity(valid)
	return col, nil
}

// NewBoolColumn creates a Bool column.
func NewBoolColumn(values []bool, valid []bool, opts ...Option) (*Column, error) {
	raw := make([]uint8, len(values))
	for i, v := range values {
		if v {
			raw[i] = 1
		}
	}
	return NewTypedColumn(TypeOf(Bool), raw, valid, opts...)
}

// NewDecimalColumn creates a Decimal32 or Decimal64 column from scaled
// representations; value i is reps[i] * 10^scale.
func NewDecimalColumn[R fixedpoint.Rep](scale fixedpoint.Scale, reps []R, valid []bool, opts ...Option) (*Column, error) {
	kind := Decimal64
	if unsafecast.Sizeof[R]() == 4 {
		kind = Decimal32
	}
	return NewTypedColumn(DecimalType(kind, int32(scale)), reps, valid, opts...)
}

// NewStringColumn creates a String column.
func NewStringColumn(values []string, valid []bool, opts ...Option) (*Column, error) {
	if valid != nil && len(valid) != len(values) {
		return nil, invalidArgument("%d validity entries for %d values", len(valid), len(values))
	}
	total := 0
	for _, s := range values {
		total += len(s)
	}
	if total > math.MaxInt32 {
		return nil, invalidArgument("string column of %d bytes exceeds the offset range", total)
	}

	o := newOptions(opts)
	col, err := newStringColumn(o, len(values), total, valid != nil)
	if err != nil {
		return nil, err
	}
	offsets := memory.Values[int32](col.offsets)
	chars := col.data.Bytes()
	pos := 0
	for i, s := range values {
		offsets[i] = int32(pos)
		pos += copy(chars[pos:], s)
	}
	offsets[len(values)] = int32(pos)
	col.setValidity(valid)
	return col, nil
}

// newStringColumn allocates a String column of n rows with room for
// charBytes bytes of character data.
func newStringColumn(o options, n, charBytes int, nullable bool) (*Column, error) {
	offsets, err := o.allocate(memory.AlignedSize((n + 1) * 4))
	if err != nil {
		return nil, err
	}
	col := &Column{typ: TypeOf(String), size: n, offsets: offsets, life: newLifetime()}
	if err := col.allocateChars(o, charBytes); err != nil {
		offsets.Release()
		return nil, err
	}
	if nullable {
		mask, err := o.allocateMask(n, memory.Uninitialized)
		if err != nil {
			col.Release()
			return nil, err
		}
		col.mask = mask
	}
	return col, nil
}

func (c *Column) allocateChars(o options, n int) error {
	chars, err := o.allocate(memory.AlignedSize(n))
	if err != nil {
		return err
	}
	c.data = chars
	return nil
}

// setValidity fills the mask from valid and materializes the null count.
func (c *Column) setValidity(valid []bool) {
	c.nullCount = 0
	if c.mask == nil {
		return
	}
	for i, v := range valid {
		c.mask.Set(i, v)
		if !v {
			c.nullCount++
		}
	}
}

// Type returns the column's element type.
func (c *Column) Type() DataType { return c.typ }

// Size returns the number of rows.
func (c *Column) Size() int { return c.size }

// Nullable reports whether the column carries a validity bitmap.
func (c *Column) Nullable() bool { return c.mask != nil }

// NullCount returns the number of null rows, computing and caching it when
// unknown.
func (c *Column) NullCount() int {
	if c.mask == nil {
		return 0
	}
	if c.nullCount == UnknownNullCount {
		c.nullCount = c.mask.CountUnset(0, c.size)
	}
	return c.nullCount
}

// SetNullCount records a null count for a bitmap the caller populated.
func (c *Column) SetNullCount(n int) { c.nullCount = n }

// InvalidateNullCount marks the null count unknown so the next NullCount
// call recounts the bitmap.
func (c *Column) InvalidateNullCount() { c.nullCount = UnknownNullCount }

// View returns a read-only view of the whole column.
func (c *Column) View() ColumnView {
	v := ColumnView{
		typ:       c.typ,
		size:      c.size,
		mask:      c.mask,
		nullCount: c.nullCount,
		life:      c.life,
	}
	if c.mask == nil {
		v.nullCount = 0
	}
	if c.data == nil {
		// Released: the view carries no storage and fails validation.
		return v
	}
	if c.typ.Kind == String {
		v.offsets = memory.Values[int32](c.offsets)[:c.size+1]
		v.data = c.data.Bytes()
	} else {
		v.data = c.data.Bytes()[:c.size*c.typ.Size()]
	}
	return v
}

// MutableView returns a view through which the column's storage can be
// written in place.
func (c *Column) MutableView() MutableColumnView {
	return MutableColumnView{ColumnView: c.View(), owner: c}
}

// Release returns the column's buffers to their resource and expires every
// view of the column.
func (c *Column) Release() {
	if c == nil {
		return
	}
	c.life.end()
	c.data.Release()
	c.offsets.Release()
	c.mask.Release()
	c.data, c.offsets, c.mask = nil, nil, nil
}

func releaseColumns(cols []*Column) {
	for _, c := range cols {
		c.Release()
	}
}
