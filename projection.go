package keel

import "sort"

// viewTable is the kernel-side projection of several source views: the
// views, their prefix-sum offsets and the combined row count.
type viewTable struct {
	views   []ColumnView
	offsets []int // len(views)+1, offsets[0] == 0
	total   int
}

// projectViews builds the offset table for views. It checks liveness but
// never computes null counts.
func projectViews(views []ColumnView) (viewTable, error) {
	offsets := make([]int, len(views)+1)
	for i, v := range views {
		if err := v.validate(); err != nil {
			return viewTable{}, err
		}
		offsets[i+1] = offsets[i] + v.size
	}
	return viewTable{views: views, offsets: offsets, total: offsets[len(views)]}, nil
}

// locate maps output position p to its source and the row within it. The
// source is upper_bound(offsets, p) - 1; positions that map to no source
// return -1.
func (vt *viewTable) locate(p int) (src, row int) {
	src = sort.SearchInts(vt.offsets, p+1) - 1
	if src < 0 || src >= len(vt.views) {
		return -1, 0
	}
	return src, p - vt.offsets[src]
}
