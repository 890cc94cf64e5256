package keel

import (
	"github.com/go-kit/log/level"

	"github.com/NerdMeNot/keel/memory"
)

// ConcatStrategy selects how fixed-width columns are concatenated.
type ConcatStrategy uint8

const (
	// ConcatAuto picks the fused kernel when any input has nulls or there
	// are more inputs than Config.Concatenate.FusedSourceThreshold, and the
	// sequential copy otherwise.
	ConcatAuto ConcatStrategy = iota

	// ConcatFused copies every value and validity bit in one launch. Each
	// lane finds its input by binary search over the offset table.
	ConcatFused

	// ConcatSequential issues one copy launch per input followed by a
	// bitmap merge.
	ConcatSequential
)

func (s ConcatStrategy) String() string {
	switch s {
	case ConcatAuto:
		return "auto"
	case ConcatFused:
		return "fused"
	case ConcatSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// Concatenate returns a column holding the rows of views in order. Every
// view must have the same type. No views yields an empty column of kind
// Empty. Dictionary and nested types fail with ErrUnsupportedType.
func Concatenate(views []ColumnView, opts ...Option) (*Column, error) {
	o := newOptions(opts)
	if len(views) == 0 {
		return emptyColumn(o, TypeOf(Empty))
	}

	typ := views[0].typ
	for i, v := range views {
		if v.typ != typ {
			return nil, typeMismatch("column %d is %s, column 0 is %s", i, v.typ, typ)
		}
	}
	if typ.Kind.IsNested() {
		return nil, unsupported("cannot concatenate %s columns", typ)
	}

	vt, err := projectViews(views)
	if err != nil {
		return nil, err
	}
	if typ.Kind == Empty {
		return emptyColumn(o, typ)
	}

	hasNulls := false
	for _, v := range views {
		if v.HasNulls() {
			hasNulls = true
			break
		}
	}

	if typ.Kind == String {
		return concatenateStringViews(o, &vt, hasNulls)
	}

	k, err := kernelsFor(typ)
	if err != nil {
		return nil, err
	}

	strategy := o.concatStrategy
	if strategy == ConcatAuto {
		strategy = ConcatSequential
		if hasNulls || len(views) > o.stream.config().Concatenate.FusedSourceThreshold {
			strategy = ConcatFused
		}
	}
	level.Debug(o.stream.logger).Log("msg", "concatenating columns", "type", typ, "sources", len(views), "rows", vt.total, "has_nulls", hasNulls, "strategy", strategy)
	o.stream.metrics.concatStrategy.WithLabelValues(strategy.String()).Inc()

	if strategy == ConcatFused {
		return fusedConcatenate(o, k, typ, &vt, hasNulls)
	}
	return sequentialConcatenate(o, k, typ, &vt, hasNulls)
}

func fusedConcatenate(o options, k kernels, typ DataType, vt *viewTable, hasNulls bool) (*Column, error) {
	sources := make([]valueSource, len(vt.views))
	for i, v := range vt.views {
		sources[i] = fromColumn(v)
	}
	return k.choose(o, "concatenate_fused", typ, vt.total, hasNulls, sources, vt.locate)
}

func sequentialConcatenate(o options, k kernels, typ DataType, vt *viewTable, hasNulls bool) (*Column, error) {
	out, err := newFixedColumn(o, typ, vt.total, hasNulls)
	if err != nil {
		return nil, err
	}
	dst := out.View()
	for i, v := range vt.views {
		if err := k.copyRows(o.stream, "concatenate_copy", dst, vt.offsets[i], v, 0, v.size); err != nil {
			out.Release()
			return nil, err
		}
	}

	out.nullCount = 0
	if hasNulls {
		valid, err := concatenateMasksInto(o.stream, out.mask, vt)
		if err != nil {
			out.Release()
			return nil, err
		}
		out.nullCount = vt.total - valid
	}
	return out, nil
}

// concatenateStringViews hands the values to the string concatenator and
// merges the bitmaps itself.
func concatenateStringViews(o options, vt *viewTable, hasNulls bool) (*Column, error) {
	out, err := concatenateStrings(o, vt)
	if err != nil {
		return nil, err
	}
	if !hasNulls {
		return out, nil
	}

	mask, err := o.allocateMask(vt.total, memory.Uninitialized)
	if err != nil {
		out.Release()
		return nil, err
	}
	valid, err := concatenateMasksInto(o.stream, mask, vt)
	if err != nil {
		mask.Release()
		out.Release()
		return nil, err
	}
	out.mask = mask
	out.nullCount = vt.total - valid
	return out, nil
}

// ConcatenateTables concatenates tables column by column. Every table must
// have the same number of columns with pairwise identical types.
func ConcatenateTables(tables []TableView, opts ...Option) (*Table, error) {
	if len(tables) == 0 {
		return NewTable()
	}
	for i, t := range tables {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if err := checkCompatible(tables[0], t); err != nil {
			return nil, withTable(err, i)
		}
	}

	o := newOptions(opts)
	cols, err := buildColumns(o.stream.config().Parallel, tables[0].NumColumns(), func(c int) (*Column, error) {
		views := make([]ColumnView, len(tables))
		for i, t := range tables {
			views[i] = t.columns[c]
		}
		col, err := Concatenate(views, opts...)
		if err != nil {
			return nil, withColumn(err, c)
		}
		return col, nil
	})
	if err != nil {
		return nil, err
	}
	return NewTable(cols...)
}
