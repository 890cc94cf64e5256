package keel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBooleanMaskScatter(t *testing.T) {
	opts := testOptions(t)
	input := singleColumn(t, nullable(t, opts, 9, 8))
	target := singleColumn(t, nullable(t, opts, 1, 2, 3, 4))
	mask := keep[*Column](t)(NewBoolColumn([]bool{true, false, false, true}, nil, opts...))

	out := keep[*Table](t)(BooleanMaskScatter(input, target, mask.View(), opts...))
	require.Equal(t, int64Rows(9, 2, 3, 8), rowsOf(out.Column(0).View()))
}

func TestBooleanMaskScatter_NullMaskRowsAreFalse(t *testing.T) {
	opts := testOptions(t)
	input := singleColumn(t, nullable(t, opts, 7, nil, 5))
	target := singleColumn(t, nullable(t, opts, 1, 2, 3, 4))
	mask := keep[*Column](t)(NewBoolColumn([]bool{true, true, true, true}, []bool{true, false, true, true}, opts...))

	out := keep[*Table](t)(BooleanMaskScatter(input, target, mask.View(), opts...))
	require.Equal(t, int64Rows(7, 2, nil, 5), rowsOf(out.Column(0).View()))
	requireNullCount(t, out.Column(0), 1)
}

func TestBooleanMaskScatter_ManyBlocks(t *testing.T) {
	opts := testOptions(t)
	const n = 700
	selected := make([]bool, n)
	var inputValues []int64
	want := make([]int64, n)
	for i := range selected {
		selected[i] = i%3 == 1
		if selected[i] {
			want[i] = int64(1000 + len(inputValues))
			inputValues = append(inputValues, want[i])
		}
	}
	input := singleColumn(t, keep[*Column](t)(NewColumn(inputValues, nil, opts...)))
	target := singleColumn(t, keep[*Column](t)(NewColumn(make([]int64, n), nil, opts...)))
	mask := keep[*Column](t)(NewBoolColumn(selected, nil, opts...))

	out := keep[*Table](t)(BooleanMaskScatter(input, target, mask.View(), opts...))
	require.Equal(t, want, Values[int64](out.Column(0).View()))
}

func TestBooleanMaskScatter_Errors(t *testing.T) {
	opts := testOptions(t)
	input := singleColumn(t, nullable(t, opts, 9))
	target := singleColumn(t, nullable(t, opts, 1, 2))
	twoTrue := keep[*Column](t)(NewBoolColumn([]bool{true, true}, nil, opts...))
	notBool := keep[*Column](t)(NewColumn([]uint8{1, 1}, nil, opts...))

	_, err := BooleanMaskScatter(input, target, twoTrue.View(), opts...)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = BooleanMaskScatter(input, target, notBool.View(), opts...)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBooleanMaskScatterScalars(t *testing.T) {
	opts := testOptions(t)
	target := singleColumn(t, keep[*Column](t)(NewStringColumn([]string{"a", "b", "c"}, nil, opts...)))
	mask := keep[*Column](t)(NewBoolColumn([]bool{false, true, true}, nil, opts...))

	out := keep[*Table](t)(BooleanMaskScatterScalars([]*Scalar{NewStringScalar("x")}, target, mask.View(), opts...))
	require.Equal(t, []string{"a", "x", "x"}, Strings(out.Column(0).View()))

	out = keep[*Table](t)(BooleanMaskScatterScalars([]*Scalar{NullScalar(TypeOf(String))}, target, mask.View(), opts...))
	require.Equal(t, []interface{}{"a", nil, nil}, rowsOf(out.Column(0).View()))
	requireNullCount(t, out.Column(0), 2)
}
