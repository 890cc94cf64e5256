package keel

// truthy returns a reader reporting whether row i of a Bool mask is valid
// and true.
func truthy(mask ColumnView) (func(i int) bool, error) {
	if err := mask.validate(); err != nil {
		return nil, err
	}
	if mask.typ.Kind != Bool {
		return nil, typeMismatch("boolean mask must be Bool, got %s", mask.typ)
	}
	values := Values[uint8](mask)
	return func(i int) bool { return values[i] != 0 && mask.IsValid(i) }, nil
}

// BooleanMaskScatter returns a copy of target in which the j-th row where
// mask is true is replaced by row j of input. input must have at least as
// many rows as mask has true rows.
func BooleanMaskScatter(input TableView, target TableView, mask ColumnView, opts ...Option) (*Table, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := checkCompatible(input, target); err != nil {
		return nil, err
	}
	selected, err := truthy(mask)
	if err != nil {
		return nil, err
	}
	if mask.Size() != target.NumRows() {
		return nil, invalidArgument("mask has %d rows, target has %d", mask.Size(), target.NumRows())
	}
	if err := checkSupported(target); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	st := o.stream
	n := mask.Size()

	// Count true rows per block, then rank every true row.
	counts := make([]int, st.config().Parallel.numBlocks(n))
	err = st.launch("boolean_mask_count", n, func(blk block) {
		c := 0
		for i := blk.begin; i < blk.end; i++ {
			if selected(i) {
				c++
			}
		}
		counts[blk.index] = c
	})
	if err != nil {
		return nil, err
	}
	total := 0
	for b, c := range counts {
		counts[b] = total
		total += c
	}
	if total > input.NumRows() {
		return nil, invalidArgument("mask selects %d rows, input has %d", total, input.NumRows())
	}

	rank := make([]int, n)
	err = st.launch("boolean_mask_rank", n, func(blk block) {
		r := counts[blk.index]
		for i := blk.begin; i < blk.end; i++ {
			if selected(i) {
				rank[i] = r
				r++
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return mergeColumns(o, "boolean_mask_scatter", target, func(c int) valueSource {
		return fromColumn(input.columns[c])
	}, func(i int) (int, int) {
		if selected(i) {
			return 1, rank[i]
		}
		return 0, i
	})
}

// BooleanMaskScatterScalars returns a copy of target in which every row
// where mask is true takes values[c] in column c.
func BooleanMaskScatterScalars(values []*Scalar, target TableView, mask ColumnView, opts ...Option) (*Table, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := checkScalars(values, target); err != nil {
		return nil, err
	}
	selected, err := truthy(mask)
	if err != nil {
		return nil, err
	}
	if mask.Size() != target.NumRows() {
		return nil, invalidArgument("mask has %d rows, target has %d", mask.Size(), target.NumRows())
	}
	if err := checkSupported(target); err != nil {
		return nil, err
	}

	return mergeColumns(newOptions(opts), "boolean_mask_scatter_scalars", target, func(c int) valueSource {
		return fromScalar(values[c])
	}, func(i int) (int, int) {
		if selected(i) {
			return 1, 0
		}
		return 0, i
	})
}
