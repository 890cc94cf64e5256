package keel

import (
	"go.uber.org/atomic"
)

// Scatter returns a copy of target in which row scatterMap[k] is replaced by
// row k of source. Negative indices count from the end of target. When an
// index repeats, the last row of source that names it wins.
//
// With checkBounds, an index outside target fails with ErrOutOfBounds before
// any output is allocated. Without it, such an index faults the kernel and
// Scatter returns ErrKernelFault.
func Scatter(source TableView, scatterMap ColumnView, target TableView, checkBounds bool, opts ...Option) (*Table, error) {
	if err := source.validate(); err != nil {
		return nil, err
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := scatterMap.validate(); err != nil {
		return nil, err
	}
	if err := checkCompatible(source, target); err != nil {
		return nil, err
	}
	if scatterMap.Size() != source.NumRows() {
		return nil, invalidArgument("scatter map has %d rows, source has %d", scatterMap.Size(), source.NumRows())
	}
	if err := checkSupported(target); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	inverse, err := scatterInverse(o.stream, scatterMap, target.NumRows(), checkBounds)
	if err != nil {
		return nil, err
	}
	return mergeColumns(o, "scatter", target, func(c int) valueSource {
		return fromColumn(source.columns[c])
	}, func(i int) (int, int) {
		if r := inverse[i].Load(); r >= 0 {
			return 1, int(r)
		}
		return 0, i
	})
}

// ScatterScalars returns a copy of target in which every row named by
// scatterMap takes values[c] in column c.
func ScatterScalars(values []*Scalar, scatterMap ColumnView, target TableView, checkBounds bool, opts ...Option) (*Table, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := scatterMap.validate(); err != nil {
		return nil, err
	}
	if err := checkScalars(values, target); err != nil {
		return nil, err
	}
	if err := checkSupported(target); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	inverse, err := scatterInverse(o.stream, scatterMap, target.NumRows(), checkBounds)
	if err != nil {
		return nil, err
	}
	return mergeColumns(o, "scatter_scalars", target, func(c int) valueSource {
		return fromScalar(values[c])
	}, func(i int) (int, int) {
		if inverse[i].Load() >= 0 {
			return 1, 0
		}
		return 0, i
	})
}

// scatterInverse maps every target row to the last scatter map row that
// names it, or -1.
func scatterInverse(st *Stream, scatterMap ColumnView, rows int, checkBounds bool) ([]atomic.Int64, error) {
	index, err := indexAccessor(scatterMap)
	if err != nil {
		return nil, err
	}
	resolve := func(k int) int {
		t := index(k)
		if t < 0 {
			t += rows
		}
		return t
	}
	if checkBounds {
		if err := checkIndices(st, "scatter_check_bounds", scatterMap.Size(), resolve, rows); err != nil {
			return nil, err
		}
	}

	inverse := make([]atomic.Int64, rows)
	err = st.launch("scatter_inverse_init", rows, func(blk block) {
		for i := blk.begin; i < blk.end; i++ {
			inverse[i].Store(-1)
		}
	})
	if err != nil {
		return nil, err
	}

	// Concurrent writers of one target row keep the largest map row.
	err = st.launch("scatter_inverse", scatterMap.Size(), func(blk block) {
		for k := blk.begin; k < blk.end; k++ {
			cell := &inverse[resolve(k)]
			for {
				cur := cell.Load()
				if int64(k) <= cur || cell.CompareAndSwap(cur, int64(k)) {
					break
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return inverse, nil
}

// mergeColumns builds, for every column c of target, a column whose row i
// is read from target (source 0) or from sourceFor(c) (source 1) as pick
// decides.
func mergeColumns(o options, kernel string, target TableView, sourceFor func(c int) valueSource, pick picker) (*Table, error) {
	cols, err := buildColumns(o.stream.config().Parallel, target.NumColumns(), func(c int) (*Column, error) {
		tgt := target.columns[c]
		src := sourceFor(c)
		k, err := kernelsFor(tgt.typ)
		if err != nil {
			return nil, err
		}
		nullable := tgt.Nullable() || src.mayHaveNulls()
		return k.choose(o, kernel, tgt.typ, target.NumRows(), nullable, []valueSource{fromColumn(tgt), src}, pick)
	})
	if err != nil {
		return nil, err
	}
	return NewTable(cols...)
}

// checkScalars validates one scalar per target column with matching types.
func checkScalars(values []*Scalar, target TableView) error {
	if len(values) != target.NumColumns() {
		return invalidArgument("%d scalars for %d columns", len(values), target.NumColumns())
	}
	for c, s := range values {
		if s == nil {
			return invalidArgument("scalar %d is nil", c)
		}
		if s.typ != target.columns[c].typ {
			return typeMismatch("column %d: scalar is %s, column is %s", c, s.typ, target.columns[c].typ)
		}
	}
	return nil
}
