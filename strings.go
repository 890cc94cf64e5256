package keel

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"go.uber.org/atomic"

	"github.com/NerdMeNot/keel/memory"
)

// stringOperand is the string form of a valueSource.
type stringOperand struct {
	offsets    []int32
	chars      []byte
	mask       []byte
	maskOffset int

	broadcast bool
	value     []byte
	valid     bool
}

func newStringOperand(s valueSource) stringOperand {
	if s.scalar != nil {
		return stringOperand{broadcast: true, value: []byte(s.scalar.str), valid: s.scalar.valid}
	}
	op := stringOperand{offsets: s.view.offsets, chars: s.view.data}
	if s.view.mask != nil {
		op.mask = s.view.mask.Bytes()
		op.maskOffset = s.view.maskOffset
	}
	return op
}

func (op *stringOperand) at(row int) ([]byte, bool) {
	if op.broadcast {
		return op.value, op.valid
	}
	b := op.chars[op.offsets[row]:op.offsets[row+1]]
	if op.mask == nil {
		return b, true
	}
	return b, bitutil.BitIsSet(op.mask, op.maskOffset+row)
}

// buildStrings materializes a String column of n rows selected by pick. It
// runs in two passes: the first writes row sizes and validity, a host scan
// turns the sizes into offsets, and the second copies the characters.
// Null rows are empty.
func buildStrings(o options, kernel string, n int, nullable bool, sources []valueSource, pick picker) (*Column, error) {
	ops := make([]stringOperand, len(sources))
	for i, s := range sources {
		ops[i] = newStringOperand(s)
	}

	offsetsBuf, err := o.allocate(memory.AlignedSize((n + 1) * 4))
	if err != nil {
		return nil, err
	}
	col := &Column{typ: TypeOf(String), size: n, offsets: offsetsBuf, life: newLifetime()}
	if nullable {
		if col.mask, err = o.allocateMask(n, memory.Uninitialized); err != nil {
			col.Release()
			return nil, err
		}
	}
	offsets := memory.Values[int32](offsetsBuf)[:n+1]

	var valid atomic.Int64
	err = o.stream.launch(kernel+"_sizes", n, func(blk block) {
		votes := newBallot(col.mask)
		for i := blk.begin; i < blk.end; i++ {
			var size int32
			ok := false
			if src, row := pick(i); src >= 0 {
				var b []byte
				b, ok = ops[src].at(row)
				if ok {
					size = int32(len(b))
				}
			}
			offsets[i+1] = size
			votes.vote(i, ok)
		}
		votes.finish(blk.end, &valid)
	})
	if err != nil {
		col.Release()
		return nil, err
	}

	offsets[0] = 0
	var total int64
	for i := 1; i <= n; i++ {
		total += int64(offsets[i])
		if total > math.MaxInt32 {
			col.Release()
			return nil, invalidArgument("string column exceeds %d bytes of characters", math.MaxInt32)
		}
		offsets[i] = int32(total)
	}

	if err := col.allocateChars(o, int(total)); err != nil {
		col.Release()
		return nil, err
	}
	chars := col.data.Bytes()

	err = o.stream.launch(kernel+"_chars", n, func(blk block) {
		for i := blk.begin; i < blk.end; i++ {
			src, row := pick(i)
			if src < 0 {
				continue
			}
			if b, ok := ops[src].at(row); ok {
				copy(chars[offsets[i]:offsets[i+1]], b)
			}
		}
	})
	if err != nil {
		col.Release()
		return nil, err
	}

	col.nullCount = 0
	if col.mask != nil {
		col.nullCount = n - int(valid.Load())
	}
	return col, nil
}

// stringConcatenator concatenates the values of String views into a new
// column without a bitmap. Validity is merged by the caller.
type stringConcatenator func(o options, vt *viewTable) (*Column, error)

var concatenateStrings stringConcatenator = defaultConcatenateStrings

func defaultConcatenateStrings(o options, vt *viewTable) (*Column, error) {
	sources := make([]valueSource, len(vt.views))
	for i, v := range vt.views {
		sources[i] = fromColumn(v)
	}
	return buildStrings(o, "concatenate_strings", vt.total, false, sources, vt.locate)
}
