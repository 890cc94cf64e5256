package keel

import (
	"go.uber.org/atomic"
)

// ScatterToPartitions splits source into one table per partition id.
// partitionMap assigns row i to partition partitionMap[i]; ids are dense, so
// the result has max(id)+1 tables, some possibly empty. Rows keep their
// source order within a partition.
func ScatterToPartitions(source TableView, partitionMap ColumnView, opts ...Option) ([]*Table, error) {
	if err := source.validate(); err != nil {
		return nil, err
	}
	if err := partitionMap.validate(); err != nil {
		return nil, err
	}
	if partitionMap.Size() != source.NumRows() {
		return nil, invalidArgument("partition map has %d rows, source has %d", partitionMap.Size(), source.NumRows())
	}
	if err := checkSupported(source); err != nil {
		return nil, err
	}
	id, err := indexAccessor(partitionMap)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	n := source.NumRows()
	if n == 0 {
		return []*Table{}, nil
	}
	st := o.stream
	blocks := st.config().Parallel.numBlocks(n)

	// Largest id per block. Negative ids are rejected.
	blockMax := make([]int, blocks)
	var negative atomic.Bool
	err = st.launch("partition_max", n, func(blk block) {
		m := -1
		for i := blk.begin; i < blk.end; i++ {
			p := id(i)
			if p < 0 {
				negative.Store(true)
			}
			m = max(m, p)
		}
		blockMax[blk.index] = m
	})
	if err != nil {
		return nil, err
	}
	if negative.Load() {
		return nil, invalidArgument("partition map has negative ids")
	}
	parts := 0
	for _, m := range blockMax {
		parts = max(parts, m+1)
	}

	// Per-block histogram of ids.
	hist := make([]int, blocks*parts)
	err = st.launch("partition_histogram", n, func(blk block) {
		h := hist[blk.index*parts : (blk.index+1)*parts]
		for i := blk.begin; i < blk.end; i++ {
			h[id(i)]++
		}
	})
	if err != nil {
		return nil, err
	}

	// Rows of partition p from block b start after the rows of every earlier
	// partition and of partition p in earlier blocks.
	cursor := make([]int, blocks*parts)
	bounds := make([]int, parts+1)
	pos := 0
	for p := 0; p < parts; p++ {
		bounds[p] = pos
		for b := 0; b < blocks; b++ {
			cursor[b*parts+p] = pos
			pos += hist[b*parts+p]
		}
	}
	bounds[parts] = pos

	perm := make([]int, n)
	err = st.launch("partition_place", n, func(blk block) {
		c := cursor[blk.index*parts : (blk.index+1)*parts]
		for i := blk.begin; i < blk.end; i++ {
			p := id(i)
			perm[c[p]] = i
			c[p]++
		}
	})
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, parts)
	for p := range tables {
		rows := perm[bounds[p]:bounds[p+1]]
		t, err := gatherRows(o, "partition_gather", source, len(rows), func(i int) (int, int) {
			return 0, rows[i]
		}, false)
		if err != nil {
			releaseTables(tables[:p])
			return nil, err
		}
		tables[p] = t
	}
	return tables, nil
}
