package keel

import (
	"go.uber.org/atomic"

	"github.com/NerdMeNot/keel/memory"
)

// ballot packs the validity votes of consecutive lanes into bitmap words.
// A block votes for lanes in increasing order starting at a word boundary,
// so every word it flushes is owned by that block alone.
type ballot struct {
	words []uint32 // nil when the output has no bitmap
	word  uint32
	valid int
}

func newBallot(mask *memory.Bitmap) ballot {
	if mask == nil {
		return ballot{}
	}
	return ballot{words: mask.Words()}
}

func (b *ballot) vote(lane int, valid bool) {
	if b.words == nil {
		return
	}
	if valid {
		b.word |= 1 << memory.BitOffset(lane)
	}
	if memory.BitOffset(lane) == memory.WordBits-1 {
		b.flush(lane)
	}
}

func (b *ballot) flush(lane int) {
	b.words[memory.WordIndex(lane)] = b.word
	b.valid += memory.PopCount(b.word)
	b.word = 0
}

// finish flushes the partial word of a block ending at lane end and adds
// the block's valid count to total.
func (b *ballot) finish(end int, total *atomic.Int64) {
	if b.words == nil {
		return
	}
	if memory.BitOffset(end) != 0 {
		b.flush(end - 1)
	}
	total.Add(int64(b.valid))
}

// ConcatenateMasks builds the validity bitmap of the concatenation of views
// and returns it with its null count. Views without a bitmap contribute
// valid rows.
func ConcatenateMasks(views []ColumnView, opts ...Option) (*memory.Bitmap, int, error) {
	vt, err := projectViews(views)
	if err != nil {
		return nil, 0, err
	}
	o := newOptions(opts)
	mask, err := o.allocateMask(vt.total, memory.Uninitialized)
	if err != nil {
		return nil, 0, err
	}
	valid, err := concatenateMasksInto(o.stream, mask, &vt)
	if err != nil {
		mask.Release()
		return nil, 0, err
	}
	return mask, vt.total - valid, nil
}

// concatenateMasksInto writes the merged bitmap of vt into dst, one lane per
// output bit, and returns the number of valid rows.
func concatenateMasksInto(st *Stream, dst *memory.Bitmap, vt *viewTable) (int, error) {
	var valid atomic.Int64
	err := st.launch("concatenate_masks", vt.total, func(blk block) {
		votes := newBallot(dst)
		for p := blk.begin; p < blk.end; p++ {
			src, row := vt.locate(p)
			bit := true
			if src >= 0 && row < vt.views[src].size {
				bit = vt.views[src].IsValid(row)
			}
			votes.vote(p, bit)
		}
		votes.finish(blk.end, &valid)
	})
	return int(valid.Load()), err
}
