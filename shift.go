package keel

// Shift returns input moved by offset rows, positive toward higher indices.
// Vacated rows take the value and validity of fill, which must have the
// input's type. An offset of at least the column size yields a column
// equal to fill everywhere.
func Shift(input ColumnView, offset int, fill *Scalar, opts ...Option) (*Column, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if fill == nil {
		return nil, invalidArgument("nil fill value")
	}
	if fill.typ != input.typ {
		return nil, typeMismatch("fill value is %s, column is %s", fill.typ, input.typ)
	}
	k, err := kernelsFor(input.typ)
	if err != nil {
		return nil, err
	}

	n := input.size
	offset = max(-n, min(n, offset))
	pick := func(i int) (int, int) {
		if j := i - offset; j >= 0 && j < n {
			return 0, j
		}
		return 1, 0
	}

	o := newOptions(opts)
	sources := []valueSource{fromColumn(input), fromScalar(fill)}
	return k.choose(o, "shift", input.typ, n, input.Nullable() || !fill.valid, sources, pick)
}
