package keel

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"go.uber.org/atomic"

	"github.com/NerdMeNot/keel/memory"
)

// valueSource is one value input of a selection kernel: a column view or a
// broadcast scalar.
type valueSource struct {
	view   ColumnView
	scalar *Scalar
}

func fromColumn(v ColumnView) valueSource { return valueSource{view: v} }

func fromScalar(s *Scalar) valueSource { return valueSource{scalar: s} }

// fromDatum converts d, checking that a column operand has rows rows.
func fromDatum(d Datum, rows int) (valueSource, error) {
	switch x := d.(type) {
	case ColumnView:
		if err := x.validate(); err != nil {
			return valueSource{}, err
		}
		if x.size != rows {
			return valueSource{}, invalidArgument("operand has %d rows, expected %d", x.size, rows)
		}
		return fromColumn(x), nil
	case *Scalar:
		if x == nil {
			return valueSource{}, invalidArgument("nil scalar")
		}
		return fromScalar(x), nil
	default:
		return valueSource{}, invalidArgument("unsupported operand %T", d)
	}
}

func (s valueSource) mayHaveNulls() bool {
	if s.scalar != nil {
		return !s.scalar.valid
	}
	return s.view.Nullable()
}

// picker maps output row i to the source it is read from and the row within
// that source. A negative source makes row i null.
type picker func(i int) (src, row int)

// kernels is the per-type operation table. Each method body is written once
// and instantiated per storage type.
type kernels interface {
	// choose builds a column of n rows where row i is read from
	// sources[src] at row, (src, row) = pick(i). Validity is computed in the
	// same pass when nullable is set.
	choose(o options, kernel string, typ DataType, n int, nullable bool, sources []valueSource, pick picker) (*Column, error)

	// copyRows copies n values of src starting at srcRow into dst starting
	// at dstRow. Validity is not touched.
	copyRows(st *Stream, kernel string, dst ColumnView, dstRow int, src ColumnView, srcRow, n int) error
}

// kernelsFor selects the operation table for typ.
func kernelsFor(typ DataType) (kernels, error) {
	switch typ.Kind {
	case Bool, UInt8:
		return typedKernels[uint8]{}, nil
	case Int8:
		return typedKernels[int8]{}, nil
	case Int16:
		return typedKernels[int16]{}, nil
	case UInt16:
		return typedKernels[uint16]{}, nil
	case Int32, Decimal32:
		return typedKernels[int32]{}, nil
	case UInt32:
		return typedKernels[uint32]{}, nil
	case Int64, Timestamp, Duration, Decimal64:
		return typedKernels[int64]{}, nil
	case UInt64:
		return typedKernels[uint64]{}, nil
	case Float32:
		return typedKernels[float32]{}, nil
	case Float64:
		return typedKernels[float64]{}, nil
	case String:
		return stringKernels{}, nil
	default:
		return nil, unsupported("%s columns cannot be restructured", typ)
	}
}

// checkSupported fails when any column of tv has no operation table.
func checkSupported(tv TableView) error {
	for i, c := range tv.columns {
		if _, err := kernelsFor(c.typ); err != nil {
			return withColumn(err, i)
		}
	}
	return nil
}

// ============================================================================
// Fixed-width kernels
// ============================================================================

type typedKernels[T FixedWidth] struct{}

// operand is the typed form of a valueSource.
type operand[T FixedWidth] struct {
	values     []T
	mask       []byte
	maskOffset int

	broadcast bool
	value     T
	valid     bool
}

func newOperand[T FixedWidth](s valueSource) operand[T] {
	if s.scalar != nil {
		op := operand[T]{broadcast: true, valid: s.scalar.valid}
		if op.valid {
			op.value = scalarValue[T](s.scalar)
		}
		return op
	}
	op := operand[T]{values: Values[T](s.view)}
	if s.view.mask != nil {
		op.mask = s.view.mask.Bytes()
		op.maskOffset = s.view.maskOffset
	}
	return op
}

func (op *operand[T]) at(row int) (T, bool) {
	if op.broadcast {
		return op.value, op.valid
	}
	v := op.values[row]
	if op.mask == nil {
		return v, true
	}
	return v, bitutil.BitIsSet(op.mask, op.maskOffset+row)
}

func (typedKernels[T]) choose(o options, kernel string, typ DataType, n int, nullable bool, sources []valueSource, pick picker) (*Column, error) {
	ops := make([]operand[T], len(sources))
	for i, s := range sources {
		ops[i] = newOperand[T](s)
	}

	out, err := newFixedColumn(o, typ, n, nullable)
	if err != nil {
		return nil, err
	}
	values := memory.Values[T](out.data)[:n]

	var valid atomic.Int64
	err = o.stream.launch(kernel, n, func(blk block) {
		votes := newBallot(out.mask)
		for i := blk.begin; i < blk.end; i++ {
			src, row := pick(i)
			if src < 0 {
				var zero T
				values[i] = zero
				votes.vote(i, false)
				continue
			}
			v, ok := ops[src].at(row)
			values[i] = v
			votes.vote(i, ok)
		}
		votes.finish(blk.end, &valid)
	})
	if err != nil {
		out.Release()
		return nil, err
	}

	out.nullCount = 0
	if out.mask != nil {
		out.nullCount = n - int(valid.Load())
	}
	return out, nil
}

func (typedKernels[T]) copyRows(st *Stream, kernel string, dst ColumnView, dstRow int, src ColumnView, srcRow, n int) error {
	to := Values[T](dst)[dstRow : dstRow+n]
	from := Values[T](src)[srcRow : srcRow+n]
	return st.launch(kernel, n, func(blk block) {
		copy(to[blk.begin:blk.end], from[blk.begin:blk.end])
	})
}

// ============================================================================
// String kernels
// ============================================================================

type stringKernels struct{}

func (stringKernels) choose(o options, kernel string, _ DataType, n int, nullable bool, sources []valueSource, pick picker) (*Column, error) {
	return buildStrings(o, kernel, n, nullable, sources, pick)
}

func (stringKernels) copyRows(*Stream, string, ColumnView, int, ColumnView, int, int) error {
	return unsupported("in-place copies of String columns")
}
