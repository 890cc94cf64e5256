package keel

import (
	"github.com/NerdMeNot/keel/memory"
)

func checkCopyRange(input, target ColumnView, inputBegin, inputEnd, targetBegin int) error {
	if input.typ != target.typ {
		return typeMismatch("input is %s, target is %s", input.typ, target.typ)
	}
	if inputBegin < 0 || inputEnd < inputBegin || inputEnd > input.size {
		return outOfBounds("input range [%d, %d) outside [0, %d)", inputBegin, inputEnd, input.size)
	}
	if n := inputEnd - inputBegin; targetBegin < 0 || targetBegin > target.size-n {
		return outOfBounds("target range [%d, %d) outside [0, %d)", targetBegin, targetBegin+n, target.size)
	}
	return nil
}

// CopyRange returns a copy of target in which rows
// [targetBegin, targetBegin+inputEnd-inputBegin) are replaced by rows
// [inputBegin, inputEnd) of input.
func CopyRange(input, target ColumnView, inputBegin, inputEnd, targetBegin int, opts ...Option) (*Column, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := target.validate(); err != nil {
		return nil, err
	}
	if err := checkCopyRange(input, target, inputBegin, inputEnd, targetBegin); err != nil {
		return nil, err
	}
	k, err := kernelsFor(target.typ)
	if err != nil {
		return nil, err
	}

	n := inputEnd - inputBegin
	targetEnd := targetBegin + n
	pick := func(i int) (int, int) {
		if i >= targetBegin && i < targetEnd {
			return 1, inputBegin + i - targetBegin
		}
		return 0, i
	}
	nullable := target.Nullable() || input.slice(inputBegin, inputEnd).HasNulls()
	sources := []valueSource{fromColumn(target), fromColumn(input)}
	return k.choose(newOptions(opts), "copy_range", target.typ, target.size, nullable, sources, pick)
}

// CopyRangeInPlace writes rows [inputBegin, inputEnd) of input into target
// starting at targetBegin. Only fixed-width types are supported, and target
// must be nullable if the copied rows contain nulls. All checks run before
// the first write. input and target must not overlap.
func CopyRangeInPlace(input ColumnView, target MutableColumnView, inputBegin, inputEnd, targetBegin int, opts ...Option) error {
	if err := input.validate(); err != nil {
		return err
	}
	if err := target.validate(); err != nil {
		return err
	}
	if err := checkCopyRange(input, target.ColumnView, inputBegin, inputEnd, targetBegin); err != nil {
		return err
	}
	if !target.typ.IsFixedWidth() {
		return unsupported("in-place copies of %s columns", target.typ)
	}
	n := inputEnd - inputBegin
	if !target.Nullable() && input.slice(inputBegin, inputEnd).HasNulls() {
		return invalidArgument("copied rows contain nulls but the target has no bitmap")
	}
	k, err := kernelsFor(target.typ)
	if err != nil {
		return err
	}

	o := newOptions(opts)
	if err := k.copyRows(o.stream, "copy_range_in_place", target.ColumnView, targetBegin, input, inputBegin, n); err != nil {
		return err
	}
	if target.Nullable() {
		dst := target.maskOffset + targetBegin
		if input.Nullable() {
			memory.CopyBits(target.mask, dst, input.mask, input.maskOffset+inputBegin, n)
		} else {
			target.mask.SetRange(dst, dst+n, true)
		}
	}
	if target.owner != nil {
		target.owner.InvalidateNullCount()
	}
	return nil
}
