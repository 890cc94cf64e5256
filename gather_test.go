package keel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gatherSource(t *testing.T, opts []Option) TableView {
	t.Helper()
	ids := nullable(t, opts, 10, nil, 30, 40, 50)
	names := keep[*Column](t)(NewStringColumn([]string{"a", "bb", "", "dddd", "e"}, []bool{true, true, true, false, true}, opts...))
	tv, err := NewTableView(ids.View(), names.View())
	require.NoError(t, err)
	return tv
}

func TestGather(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	gatherMap := keep[*Column](t)(NewColumn([]int32{4, 0, 1, 1, 3}, nil, opts...))

	out := keep[*Table](t)(Gather(source, gatherMap.View(), BoundsDontCheck, opts...))
	require.Equal(t, [][]interface{}{
		int64Rows(50, 10, nil, nil, 40),
		{"e", "a", "bb", "bb", nil},
	}, tableRows(out.View()))
	requireNullCount(t, out.Column(0), 2)
	requireNullCount(t, out.Column(1), 1)
}

func TestGather_Identity(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	identity := keep[*Column](t)(NewColumn([]uint8{0, 1, 2, 3, 4}, nil, opts...))

	out := keep[*Table](t)(Gather(source, identity.View(), BoundsCheck, opts...))
	require.Equal(t, tableRows(source), tableRows(out.View()))
}

func TestGather_ManyBlocks(t *testing.T) {
	opts := testOptions(t)
	const n = 500
	values := make([]int64, n)
	reversed := make([]int64, n)
	for i := range values {
		values[i] = int64(i * 3)
		reversed[i] = int64(n - 1 - i)
	}
	col := keep[*Column](t)(NewColumn(values, nil, opts...))
	gatherMap := keep[*Column](t)(NewColumn(reversed, nil, opts...))
	tv, err := NewTableView(col.View())
	require.NoError(t, err)

	out := keep[*Table](t)(Gather(tv, gatherMap.View(), BoundsDontCheck, opts...))
	got := Values[int64](out.Column(0).View())
	for i := range got {
		require.Equal(t, int64((n-1-i)*3), got[i])
	}
	require.False(t, out.Column(0).Nullable())
}

func TestGather_BoundsCheck(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	gatherMap := keep[*Column](t)(NewColumn([]int64{0, 5, 1}, nil, opts...))

	_, err := Gather(source, gatherMap.View(), BoundsCheck, opts...)
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.Contains(t, err.Error(), "index 5 at row 1")
}

func TestGather_BoundsNullify(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	gatherMap := keep[*Column](t)(NewColumn([]int64{2, -1, 9, 0}, nil, opts...))

	out := keep[*Table](t)(Gather(source, gatherMap.View(), BoundsNullify, opts...))
	require.Equal(t, [][]interface{}{
		int64Rows(30, nil, nil, 10),
		{"", nil, nil, "a"},
	}, tableRows(out.View()))
	requireNullCount(t, out.Column(0), 2)
}

func TestGather_DontCheckFaults(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	gatherMap := keep[*Column](t)(NewColumn([]int64{0, 100}, nil, opts...))

	_, err := Gather(source, gatherMap.View(), BoundsDontCheck, opts...)
	require.ErrorIs(t, err, ErrKernelFault)
}

func TestGather_NegativeIndices(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	gatherMap := keep[*Column](t)(NewColumn([]int16{-1, -5, 2}, nil, opts...))

	out := keep[*Table](t)(Gather(source, gatherMap.View(), BoundsCheck, append(opts, WithNegativeIndices())...))
	require.Equal(t, int64Rows(50, 10, 30), rowsOf(out.Column(0).View()))

	// Without wrapping a negative index is out of range.
	_, err := Gather(source, gatherMap.View(), BoundsCheck, opts...)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGather_InvalidMap(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)

	floats := keep[*Column](t)(NewColumn([]float64{0, 1}, nil, opts...))
	_, err := Gather(source, floats.View(), BoundsCheck, opts...)
	require.ErrorIs(t, err, ErrTypeMismatch)

	withNulls := nullable(t, opts, 0, nil)
	_, err = Gather(source, withNulls.View(), BoundsCheck, opts...)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGather_EmptyMap(t *testing.T) {
	opts := testOptions(t)
	source := gatherSource(t, opts)
	empty := keep[*Column](t)(NewColumn([]int32{}, nil, opts...))

	out := keep[*Table](t)(Gather(source, empty.View(), BoundsDontCheck, opts...))
	require.Equal(t, 2, out.NumColumns())
	require.Equal(t, 0, out.NumRows())
}
