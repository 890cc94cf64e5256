package memory_test

import (
	"errors"
	"testing"

	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/NerdMeNot/keel/memory"
)

func TestFromArrow_ReleasesEverything(t *testing.T) {
	checked := arrowmem.NewCheckedAllocator(arrowmem.NewGoAllocator())
	defer checked.AssertSize(t, 0)

	res := memory.FromArrow(checked)

	buf, err := memory.Allocate(res, 100)
	require.NoError(t, err)
	require.Equal(t, 100, buf.Len())

	bmap, err := memory.NewBitmap(res, 10, memory.AllValid)
	require.NoError(t, err)

	buf.Release()
	buf.Release() // idempotent
	bmap.Release()
}

func TestLimitedResource(t *testing.T) {
	res := memory.NewLimitedResource(nil, 128)

	a, err := memory.Allocate(res, 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, res.InUse())

	_, err = memory.Allocate(res, 64)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory), "unexpected error %v", err)
	require.EqualValues(t, 100, res.InUse(), "failed allocations are not accounted")

	a.Release()
	require.EqualValues(t, 0, res.InUse())
}

func TestPoolResource_Reuse(t *testing.T) {
	pool := memory.NewPoolResource()

	b, err := pool.Allocate(100)
	require.NoError(t, err)
	require.Len(t, b, 100)
	require.Equal(t, 128, cap(b), "allocations are rounded to a power of two")

	b[0] = 42
	pool.Deallocate(b)

	again, err := pool.Allocate(120)
	require.NoError(t, err)
	require.Len(t, again, 120)

	empty, err := pool.Allocate(0)
	require.NoError(t, err)
	require.Len(t, empty, 0)
	pool.Deallocate(empty)

	// Foreign buffers are dropped rather than pooled.
	pool.Deallocate(make([]byte, 100))
}
