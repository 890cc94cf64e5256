package keel

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ============================================================================
// Arrow Export
// ============================================================================

// ToArrow exports a column view to an Arrow array allocated from mem.
// The caller is responsible for calling Release() on the returned array.
func ToArrow(v ColumnView, mem memory.Allocator) (arrow.Array, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	switch v.typ.Kind {
	case Bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(Bools(v), validity(v))
		return builder.NewArray(), nil
	case Int8:
		return buildArrow[int8](array.NewInt8Builder(mem), v), nil
	case Int16:
		return buildArrow[int16](array.NewInt16Builder(mem), v), nil
	case Int32:
		return buildArrow[int32](array.NewInt32Builder(mem), v), nil
	case Int64:
		return buildArrow[int64](array.NewInt64Builder(mem), v), nil
	case UInt8:
		return buildArrow[uint8](array.NewUint8Builder(mem), v), nil
	case UInt16:
		return buildArrow[uint16](array.NewUint16Builder(mem), v), nil
	case UInt32:
		return buildArrow[uint32](array.NewUint32Builder(mem), v), nil
	case UInt64:
		return buildArrow[uint64](array.NewUint64Builder(mem), v), nil
	case Float32:
		return buildArrow[float32](array.NewFloat32Builder(mem), v), nil
	case Float64:
		return buildArrow[float64](array.NewFloat64Builder(mem), v), nil
	case Timestamp:
		builder := array.NewTimestampBuilder(mem, &arrow.TimestampType{Unit: arrow.Nanosecond})
		return buildArrow[arrow.Timestamp](builder, v), nil
	case Duration:
		builder := array.NewDurationBuilder(mem, &arrow.DurationType{Unit: arrow.Nanosecond})
		return buildArrow[arrow.Duration](builder, v), nil
	case String:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(Strings(v), validity(v))
		return builder.NewArray(), nil
	default:
		return nil, unsupported("no Arrow export for %s", v.typ)
	}
}

type arrowBuilder[T FixedWidth] interface {
	AppendValues(v []T, valid []bool)
	NewArray() arrow.Array
	Release()
}

func buildArrow[T FixedWidth](builder arrowBuilder[T], v ColumnView) arrow.Array {
	defer builder.Release()
	builder.AppendValues(Values[T](v), validity(v))
	return builder.NewArray()
}

// validity returns per-row validity, or nil for a view without a bitmap.
func validity(v ColumnView) []bool {
	if !v.Nullable() {
		return nil
	}
	valid := make([]bool, v.size)
	for i := range valid {
		valid[i] = v.IsValid(i)
	}
	return valid
}

// ============================================================================
// Arrow Import
// ============================================================================

// FromArrow copies an Arrow array into a new column. Timestamps and
// durations are converted to nanoseconds. Dictionary and nested arrays fail
// with ErrUnsupportedType.
func FromArrow(arr arrow.Array, opts ...Option) (*Column, error) {
	if arr == nil {
		return nil, invalidArgument("array is nil")
	}

	switch a := arr.(type) {
	case *array.Boolean:
		values := make([]bool, a.Len())
		for i := range values {
			values[i] = a.Value(i)
		}
		return NewBoolColumn(values, arrowValidity(a), opts...)
	case *array.Int8:
		return NewColumn(a.Int8Values(), arrowValidity(a), opts...)
	case *array.Int16:
		return NewColumn(a.Int16Values(), arrowValidity(a), opts...)
	case *array.Int32:
		return NewColumn(a.Int32Values(), arrowValidity(a), opts...)
	case *array.Int64:
		return NewColumn(a.Int64Values(), arrowValidity(a), opts...)
	case *array.Uint8:
		return NewColumn(a.Uint8Values(), arrowValidity(a), opts...)
	case *array.Uint16:
		return NewColumn(a.Uint16Values(), arrowValidity(a), opts...)
	case *array.Uint32:
		return NewColumn(a.Uint32Values(), arrowValidity(a), opts...)
	case *array.Uint64:
		return NewColumn(a.Uint64Values(), arrowValidity(a), opts...)
	case *array.Float32:
		return NewColumn(a.Float32Values(), arrowValidity(a), opts...)
	case *array.Float64:
		return NewColumn(a.Float64Values(), arrowValidity(a), opts...)
	case *array.Timestamp:
		valid := arrowValidity(a)
		values, err := toNanos(a.TimestampValues(), valid, a.DataType().(*arrow.TimestampType).Unit)
		if err != nil {
			return nil, err
		}
		return NewTypedColumn(TypeOf(Timestamp), values, valid, opts...)
	case *array.Duration:
		valid := arrowValidity(a)
		values, err := toNanos(a.DurationValues(), valid, a.DataType().(*arrow.DurationType).Unit)
		if err != nil {
			return nil, err
		}
		return NewTypedColumn(TypeOf(Duration), values, valid, opts...)
	case *array.String:
		values := make([]string, a.Len())
		for i := range values {
			values[i] = a.Value(i)
		}
		return NewStringColumn(values, arrowValidity(a), opts...)
	default:
		return nil, unsupported("no Arrow import for %s", arr.DataType())
	}
}

// arrowValidity returns per-row validity, or nil when arr has no nulls.
func arrowValidity(arr arrow.Array) []bool {
	if arr.NullN() == 0 {
		return nil
	}
	valid := make([]bool, arr.Len())
	for i := range valid {
		valid[i] = arr.IsValid(i)
	}
	return valid
}

// toNanos converts values of the given unit to nanoseconds. Null rows are
// zeroed; a valid value outside the nanosecond range fails.
func toNanos[T ~int64](values []T, valid []bool, unit arrow.TimeUnit) ([]int64, error) {
	mult := int64(unit.Multiplier())
	lo, hi := math.MinInt64/mult, math.MaxInt64/mult
	out := make([]int64, len(values))
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		if int64(v) < lo || int64(v) > hi {
			return nil, outOfBounds("value %d at row %d does not fit nanoseconds from %s", v, i, unit)
		}
		out[i] = int64(v) * mult
	}
	return out, nil
}
