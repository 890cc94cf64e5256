package keel

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	kmem "github.com/NerdMeNot/keel/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testStream returns a stream with tiny blocks so that small test inputs
// span several blocks and run on several workers.
func testStream(t testing.TB) *Stream {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Parallel = ParallelConfig{
		MinRowsForParallel: 0,
		BlockSize:          32,
		MaxWorkers:         4,
		Enabled:            true,
	}
	st, err := NewStream(cfg, log.NewNopLogger(), nil)
	require.NoError(t, err)
	return st
}

// testOptions allocates from a checked allocator that must be empty when
// the test ends, and runs kernels on a test stream.
func testOptions(t *testing.T) []Option {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return []Option{WithResource(kmem.FromArrow(mem)), WithStream(testStream(t))}
}

// keep fails the test on error and releases the result when the test ends.
func keep[T interface{ Release() }](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		require.NoError(t, err)
		t.Cleanup(v.Release)
		return v
	}
}

// rowsOf returns the rows of v as Go values, nil for null rows.
func rowsOf(v ColumnView) []interface{} {
	rows := make([]interface{}, v.Size())
	for i := range rows {
		rows[i] = ValueAt(v, i)
	}
	return rows
}

// tableRows returns the rows of every column of tv.
func tableRows(tv TableView) [][]interface{} {
	cols := make([][]interface{}, tv.NumColumns())
	for c := range cols {
		cols[c] = rowsOf(tv.Column(c))
	}
	return cols
}

func int64Rows(values ...interface{}) []interface{} {
	rows := make([]interface{}, len(values))
	for i, v := range values {
		if n, ok := v.(int); ok {
			rows[i] = int64(n)
		} else {
			rows[i] = v
		}
	}
	return rows
}

// nullable builds an Int64 column where nil entries are nulls.
func nullable(t *testing.T, opts []Option, values ...interface{}) *Column {
	t.Helper()
	data := make([]int64, len(values))
	valid := make([]bool, len(values))
	for i, v := range values {
		if v != nil {
			data[i] = int64(v.(int))
			valid[i] = true
		}
	}
	return keep[*Column](t)(NewColumn(data, valid, opts...))
}

// requireNullCount checks the cached null count against the bitmap.
func requireNullCount(t *testing.T, col *Column, want int) {
	t.Helper()
	require.Equal(t, want, col.NullCount())
	if col.Nullable() {
		require.Equal(t, want, col.mask.CountUnset(0, col.Size()))
	}
}
