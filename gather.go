package keel

import (
	"go.uber.org/atomic"
)

// BoundsPolicy selects how Gather treats indices outside the source.
type BoundsPolicy uint8

const (
	// BoundsDontCheck skips validation. An index outside the source makes
	// the kernel fault and Gather returns ErrKernelFault without output.
	BoundsDontCheck BoundsPolicy = iota

	// BoundsCheck validates every index before allocating and fails with
	// ErrOutOfBounds.
	BoundsCheck

	// BoundsNullify turns rows with an out of range index into nulls.
	BoundsNullify
)

func (p BoundsPolicy) String() string {
	switch p {
	case BoundsDontCheck:
		return "dont_check"
	case BoundsCheck:
		return "check"
	case BoundsNullify:
		return "nullify"
	default:
		return "unknown"
	}
}

// Gather builds a table whose row i is row gatherMap[i] of source. The map
// must be an integer column without nulls. Negative indices are only
// accepted with WithNegativeIndices, which reads index i as i + rows.
func Gather(source TableView, gatherMap ColumnView, policy BoundsPolicy, opts ...Option) (*Table, error) {
	if err := source.validate(); err != nil {
		return nil, err
	}
	if err := gatherMap.validate(); err != nil {
		return nil, err
	}
	if err := checkSupported(source); err != nil {
		return nil, err
	}
	index, err := indexAccessor(gatherMap)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	rows := source.NumRows()
	resolve := index
	if o.negativeIndices {
		resolve = func(i int) int {
			r := index(i)
			if r < 0 {
				r += rows
			}
			return r
		}
	}

	pick := func(i int) (int, int) { return 0, resolve(i) }
	switch policy {
	case BoundsCheck:
		if err := checkIndices(o.stream, "gather_check_bounds", gatherMap.Size(), resolve, rows); err != nil {
			return nil, err
		}
	case BoundsNullify:
		pick = func(i int) (int, int) {
			r := resolve(i)
			if r < 0 || r >= rows {
				return -1, 0
			}
			return 0, r
		}
	}
	return gatherRows(o, "gather", source, gatherMap.Size(), pick, policy == BoundsNullify)
}

// gatherRows builds every column of the result with one selection launch
// per column. pick reads from source 0, the source column itself.
func gatherRows(o options, kernel string, source TableView, n int, pick picker, nullify bool) (*Table, error) {
	cols, err := buildColumns(o.stream.config().Parallel, source.NumColumns(), func(c int) (*Column, error) {
		col := source.columns[c]
		k, err := kernelsFor(col.typ)
		if err != nil {
			return nil, err
		}
		return k.choose(o, kernel, col.typ, n, col.Nullable() || nullify, []valueSource{fromColumn(col)}, pick)
	})
	if err != nil {
		return nil, err
	}
	return NewTable(cols...)
}

// ============================================================================
// Index columns
// ============================================================================

// indexAccessor returns a reader for an integer column without nulls.
func indexAccessor(v ColumnView) (func(i int) int, error) {
	if !v.typ.Kind.IsInteger() {
		return nil, typeMismatch("index column must be an integer type, got %s", v.typ)
	}
	if v.HasNulls() {
		return nil, invalidArgument("index column has %d nulls", v.NullCount())
	}
	switch v.typ.Kind {
	case Int8:
		return accessor(Values[int8](v)), nil
	case Int16:
		return accessor(Values[int16](v)), nil
	case Int32:
		return accessor(Values[int32](v)), nil
	case Int64:
		return accessor(Values[int64](v)), nil
	case UInt8:
		return accessor(Values[uint8](v)), nil
	case UInt16:
		return accessor(Values[uint16](v)), nil
	case UInt32:
		return accessor(Values[uint32](v)), nil
	default:
		return accessor(Values[uint64](v)), nil
	}
}

func accessor[T FixedWidth](values []T) func(i int) int {
	return func(i int) int { return int(values[i]) }
}

// checkIndices fails with ErrOutOfBounds if any of the n resolved indices
// falls outside [0, rows).
func checkIndices(st *Stream, kernel string, n int, resolve func(i int) int, rows int) error {
	var (
		bad      atomic.Bool
		badRow   atomic.Int64
		badIndex atomic.Int64
	)
	err := st.launch(kernel, n, func(blk block) {
		for i := blk.begin; i < blk.end; i++ {
			if r := resolve(i); r < 0 || r >= rows {
				if bad.CompareAndSwap(false, true) {
					badRow.Store(int64(i))
					badIndex.Store(int64(r))
				}
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if bad.Load() {
		return outOfBounds("index %d at row %d outside [0, %d)", badIndex.Load(), badRow.Load(), rows)
	}
	return nil
}
