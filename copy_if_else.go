package keel

// CopyIfElse returns a column whose row i is lhs[i] where mask[i] is true
// and rhs[i] otherwise. Either operand may be a column of the mask's size or
// a broadcast scalar. A null mask row selects rhs. A row is null when the
// selected operand is null there.
func CopyIfElse(lhs, rhs Datum, mask ColumnView, opts ...Option) (*Column, error) {
	selected, err := truthy(mask)
	if err != nil {
		return nil, err
	}
	if lhs == nil || rhs == nil {
		return nil, invalidArgument("nil operand")
	}
	l, err := fromDatum(lhs, mask.Size())
	if err != nil {
		return nil, err
	}
	r, err := fromDatum(rhs, mask.Size())
	if err != nil {
		return nil, err
	}
	if lhs.Type() != rhs.Type() {
		return nil, typeMismatch("lhs is %s, rhs is %s", lhs.Type(), rhs.Type())
	}
	typ := lhs.Type()
	k, err := kernelsFor(typ)
	if err != nil {
		return nil, err
	}

	pick := func(i int) (int, int) {
		if selected(i) {
			return 0, i
		}
		return 1, i
	}
	nullable := l.mayHaveNulls() || r.mayHaveNulls()
	return k.choose(newOptions(opts), "copy_if_else", typ, mask.Size(), nullable, []valueSource{l, r}, pick)
}
