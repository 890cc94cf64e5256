package keel

import (
	"github.com/NerdMeNot/keel/internal/unsafecast"
	"github.com/NerdMeNot/keel/memory"
)

// PackedTable is one partition produced by ContiguousSplit. Every column of
// Table lives in Data, so the partition outlives the table it was split
// from. Release frees Data and expires Table.
type PackedTable struct {
	Table TableView
	Data  *memory.Buffer

	life *lifetime
}

// Release frees the partition's storage.
func (p PackedTable) Release() {
	p.life.end()
	p.Data.Release()
}

// ContiguousSplit splits input like SplitTable and copies each partition
// into a single buffer of its own.
func ContiguousSplit(input TableView, splits []int, opts ...Option) ([]PackedTable, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := checkSupported(input); err != nil {
		return nil, err
	}
	parts, err := SplitTable(input, splits)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	out := make([]PackedTable, len(parts))
	for i, part := range parts {
		packed, err := packTable(o, part)
		if err != nil {
			for _, p := range out[:i] {
				p.Release()
			}
			return nil, err
		}
		out[i] = packed
	}
	return out, nil
}

// packedColumn records where one column's buffers live inside the packed
// allocation. Absent buffers are -1.
type packedColumn struct {
	data, offsets, mask int
}

func layoutTable(tv TableView) ([]packedColumn, int) {
	layout := make([]packedColumn, len(tv.columns))
	size := 0
	for i, c := range tv.columns {
		l := packedColumn{data: -1, offsets: -1, mask: -1}
		if c.typ.Kind == String {
			l.offsets = size
			size += memory.AlignedSize((c.size + 1) * 4)
			begin, end := c.charRange()
			l.data = size
			size += memory.AlignedSize(end - begin)
		} else {
			l.data = size
			size += memory.AlignedSize(c.size * c.typ.Size())
		}
		if c.Nullable() {
			l.mask = size
			size += memory.MaskBytes(c.size)
		}
		layout[i] = l
	}
	return layout, size
}

func packTable(o options, tv TableView) (PackedTable, error) {
	layout, size := layoutTable(tv)
	buf, err := o.allocate(size)
	if err != nil {
		return PackedTable{}, err
	}
	packed := PackedTable{Data: buf, life: newLifetime()}
	storage := buf.Bytes()
	rows := tv.rows

	cols := make([]ColumnView, len(tv.columns))
	for i, c := range tv.columns {
		l := layout[i]
		v := ColumnView{typ: c.typ, size: rows, life: packed.life}

		if c.typ.Kind == String {
			begin, end := c.charRange()
			offsets := unsafecast.Slice[byte, int32](storage[l.offsets : l.offsets+(rows+1)*4])
			base := c.offsets[0]
			err = o.stream.launch("contiguous_split_offsets", rows+1, func(blk block) {
				for j := blk.begin; j < blk.end; j++ {
					offsets[j] = c.offsets[j] - base
				}
			})
			v.offsets = offsets
			v.data = storage[l.data : l.data+end-begin]
			copy(v.data, c.data[begin:end])
		} else {
			w := c.typ.Size()
			v.data = storage[l.data : l.data+rows*w]
			err = o.stream.launch("contiguous_split_copy", rows, func(blk block) {
				copy(v.data[blk.begin*w:blk.end*w], c.data[blk.begin*w:blk.end*w])
			})
		}
		if err != nil {
			buf.Release()
			return PackedTable{}, err
		}

		if c.Nullable() {
			v.mask = memory.WrapBitmap(storage[l.mask:l.mask+memory.MaskBytes(rows)], rows)
			memory.CopyBits(v.mask, 0, c.mask, c.maskOffset, rows)
			v.nullCount = c.nullCount
		}
		cols[i] = v
	}
	packed.Table = TableView{columns: cols, rows: rows}
	return packed, nil
}
