package keel

// Slice returns one view per pair of indices: indices[2k] and indices[2k+1]
// are the begin and end rows of view k. No data is copied.
func Slice(input ColumnView, indices []int) ([]ColumnView, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := checkSliceIndices(input.size, indices); err != nil {
		return nil, err
	}
	out := make([]ColumnView, len(indices)/2)
	for k := range out {
		out[k] = input.slice(indices[2*k], indices[2*k+1])
	}
	return out, nil
}

// Split partitions input at the given rows, returning len(splits)+1 views
// covering [0, size) contiguously. Split points must be strictly increasing
// and within [0, size].
func Split(input ColumnView, splits []int) ([]ColumnView, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	indices, err := splitIndices(input.size, splits)
	if err != nil {
		return nil, err
	}
	return Slice(input, indices)
}

// SliceTable applies Slice to every column of input.
func SliceTable(input TableView, indices []int) ([]TableView, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := checkSliceIndices(input.rows, indices); err != nil {
		return nil, err
	}
	out := make([]TableView, len(indices)/2)
	for k := range out {
		begin, end := indices[2*k], indices[2*k+1]
		cols := make([]ColumnView, len(input.columns))
		for c, col := range input.columns {
			cols[c] = col.slice(begin, end)
		}
		out[k] = TableView{columns: cols, rows: end - begin}
	}
	return out, nil
}

// SplitTable applies Split to every column of input.
func SplitTable(input TableView, splits []int) ([]TableView, error) {
	indices, err := splitIndices(input.rows, splits)
	if err != nil {
		return nil, err
	}
	return SliceTable(input, indices)
}

func checkSliceIndices(size int, indices []int) error {
	if len(indices)%2 != 0 {
		return invalidArgument("slice indices must come in pairs, got %d", len(indices))
	}
	for k := 0; k < len(indices); k += 2 {
		begin, end := indices[k], indices[k+1]
		if begin > end {
			return invalidArgument("slice %d begins at %d after its end %d", k/2, begin, end)
		}
		if begin < 0 || end > size {
			return outOfBounds("slice [%d, %d) outside [0, %d]", begin, end, size)
		}
	}
	return nil
}

// splitIndices turns split points into slice pairs [0, s1, s1, s2, ..., sn, size].
func splitIndices(size int, splits []int) ([]int, error) {
	indices := make([]int, 0, 2*len(splits)+2)
	prev := 0
	for i, s := range splits {
		if s < 0 || s > size {
			return nil, outOfBounds("split point %d outside [0, %d]", s, size)
		}
		if i > 0 && s <= splits[i-1] {
			return nil, invalidArgument("split points must be strictly increasing, %d follows %d", s, splits[i-1])
		}
		indices = append(indices, prev, s)
		prev = s
	}
	return append(indices, prev, size), nil
}
