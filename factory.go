package keel

import (
	"github.com/NerdMeNot/keel/memory"
)

// MaskPolicy decides whether AllocateLike gives the new column a validity
// bitmap.
type MaskPolicy uint8

const (
	// MaskNever allocates no bitmap.
	MaskNever MaskPolicy = iota
	// MaskRetain allocates a bitmap iff the prototype has one.
	MaskRetain
	// MaskAlways allocates a bitmap.
	MaskAlways
)

func (p MaskPolicy) String() string {
	switch p {
	case MaskNever:
		return "never"
	case MaskRetain:
		return "retain"
	case MaskAlways:
		return "always"
	default:
		return "unknown"
	}
}

// SameSize asks AllocateLike for the prototype's row count.
const SameSize = -1

func (p MaskPolicy) allocate(prototype ColumnView) bool {
	switch p {
	case MaskAlways:
		return true
	case MaskRetain:
		return prototype.Nullable()
	default:
		return false
	}
}

// EmptyLike returns a zero-row column with the prototype's type.
func EmptyLike(prototype ColumnView, opts ...Option) (*Column, error) {
	if err := prototype.validate(); err != nil {
		return nil, err
	}
	return emptyColumn(newOptions(opts), prototype.typ)
}

func emptyColumn(o options, typ DataType) (*Column, error) {
	switch {
	case typ.Kind == String:
		col, err := newStringColumn(o, 0, 0, false)
		if err != nil {
			return nil, err
		}
		memory.Values[int32](col.offsets)[0] = 0
		col.nullCount = 0
		return col, nil
	case typ.IsFixedWidth(), typ.Kind == Empty:
		data, err := o.allocate(0)
		if err != nil {
			return nil, err
		}
		return &Column{typ: typ, data: data, life: newLifetime()}, nil
	default:
		return nil, unsupported("cannot create an empty %s column", typ)
	}
}

// EmptyLikeTable returns a zero-row table with the prototype's column types.
func EmptyLikeTable(prototype TableView, opts ...Option) (*Table, error) {
	if err := prototype.validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	cols, err := buildColumns(o.stream.config().Parallel, prototype.NumColumns(), func(i int) (*Column, error) {
		return emptyColumn(o, prototype.columns[i].typ)
	})
	if err != nil {
		return nil, err
	}
	return NewTable(cols...)
}

// AllocateLike allocates an uninitialized fixed-width column with the
// prototype's type and size rows (SameSize for the prototype's row count).
// The bitmap follows policy.
//
// The new column reports a null count of 0 even though its bitmap is
// uninitialized. A caller that fills the bitmap must call SetNullCount or
// InvalidateNullCount afterwards.
func AllocateLike(prototype ColumnView, size int, policy MaskPolicy, opts ...Option) (*Column, error) {
	if err := prototype.validate(); err != nil {
		return nil, err
	}
	if size == SameSize {
		size = prototype.size
	}
	if size < 0 {
		return nil, invalidArgument("negative size %d", size)
	}
	if !prototype.typ.IsFixedWidth() {
		return nil, unsupported("AllocateLike requires a fixed-width type, got %s", prototype.typ)
	}

	col, err := newFixedColumn(newOptions(opts), prototype.typ, size, policy.allocate(prototype))
	if err != nil {
		return nil, err
	}
	col.nullCount = 0
	return col, nil
}
