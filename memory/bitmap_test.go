package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NerdMeNot/keel/memory"
)

func TestWordAddressing(t *testing.T) {
	require.Equal(t, 0, memory.WordIndex(31))
	require.Equal(t, 1, memory.WordIndex(32))
	require.Equal(t, uint(5), memory.BitOffset(69))
	require.Equal(t, 0, memory.NumWords(0))
	require.Equal(t, 1, memory.NumWords(1))
	require.Equal(t, 2, memory.NumWords(33))
	require.Equal(t, 64, memory.MaskBytes(1), "bitmaps are padded to 64 bytes")
}

func TestBitmap_States(t *testing.T) {
	valid, err := memory.NewBitmap(nil, 40, memory.AllValid)
	require.NoError(t, err)
	defer valid.Release()
	require.Equal(t, 40, valid.CountSet(0, 40))
	require.Equal(t, 0, valid.CountUnset(0, 40))

	nulls, err := memory.NewBitmap(nil, 40, memory.AllNull)
	require.NoError(t, err)
	defer nulls.Release()
	require.Equal(t, 40, nulls.CountUnset(0, 40))
}

func TestBitmap_Set(t *testing.T) {
	bmap, err := memory.NewBitmap(nil, 64, memory.AllNull)
	require.NoError(t, err)
	defer bmap.Release()

	bmap.Set(6, true)
	bmap.Set(8, true)
	bmap.Set(9, false)
	bmap.Set(40, true) // Set bit in another word

	require.True(t, bmap.Get(6), "bit 6 should be true")
	require.True(t, bmap.Get(8), "bit 8 should be true")
	require.False(t, bmap.Get(9), "bit 9 should be false")
	require.True(t, bmap.Get(40), "bit 40 should be true")

	require.Equal(t, uint32(1<<6|1<<8), bmap.Words()[0])
	require.Equal(t, uint32(1<<memory.BitOffset(40)), bmap.Words()[memory.WordIndex(40)])

	for i := range bmap.Len() {
		// Ignore bits we explicitly set.
		if i == 6 || i == 8 || i == 40 {
			continue
		}
		require.False(t, bmap.Get(i), "bit %d should be false", i)
	}
}

func TestBitmap_SetRange(t *testing.T) {
	bmap, err := memory.NewBitmap(nil, 64, memory.AllNull)
	require.NoError(t, err)
	defer bmap.Release()

	bmap.SetRange(0, 5, true)
	bmap.SetRange(30, 35, true)

	for i := range bmap.Len() {
		value := bmap.Get(i)

		switch {
		case i < 5:
			require.True(t, value, "bit %d should be true", i)
		case i >= 30 && i < 35:
			require.True(t, value, "bit %d should be true", i)
		default:
			require.False(t, value, "bit %d should be false", i)
		}
	}
	require.Equal(t, 10, bmap.CountSet(0, 64))
	require.Equal(t, 2, bmap.CountSet(33, 40))
}

func TestCopyBits(t *testing.T) {
	src, err := memory.NewBitmap(nil, 70, memory.AllNull)
	require.NoError(t, err)
	defer src.Release()
	for _, i := range []int{3, 4, 31, 32, 65} {
		src.Set(i, true)
	}

	dst, err := memory.NewBitmap(nil, 70, memory.AllValid)
	require.NoError(t, err)
	defer dst.Release()

	// Copy bits [3, 66) of src to dst starting at bit 1.
	memory.CopyBits(dst, 1, src, 3, 63)

	require.True(t, dst.Get(0), "bits before the destination range are preserved")
	for i := 1; i < 64; i++ {
		require.Equal(t, src.Get(i+2), dst.Get(i), "bit %d", i)
	}
	require.True(t, dst.Get(64), "bits after the destination range are preserved")
}

func TestWrapBitmap(t *testing.T) {
	raw := []byte{0b0000_0101, 0, 0, 0b1000_0000}
	bmap := memory.WrapBitmap(raw, 32)

	require.True(t, bmap.Get(0))
	require.False(t, bmap.Get(1))
	require.True(t, bmap.Get(2))
	require.True(t, bmap.Get(31))
	require.Equal(t, 3, bmap.CountSet(0, 32))

	require.Panics(t, func() { memory.WrapBitmap(raw[:2], 32) })
}
