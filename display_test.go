package keel

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultDisplayConfig(t *testing.T) {
	cfg := DefaultDisplayConfig()

	if cfg.MaxRows != 10 {
		t.Errorf("expected MaxRows=10, got %d", cfg.MaxRows)
	}
	if cfg.FloatPrecision != 4 {
		t.Errorf("expected FloatPrecision=4, got %d", cfg.FloatPrecision)
	}
	if cfg.TableStyle != "rounded" {
		t.Errorf("expected TableStyle=rounded, got %s", cfg.TableStyle)
	}
}

func TestSetGetDisplayConfig(t *testing.T) {
	original := GetDisplayConfig()
	defer SetDisplayConfig(original)

	cfg := DefaultDisplayConfig()
	cfg.MaxRows = 20
	cfg.TableStyle = "ascii"
	SetDisplayConfig(cfg)

	got := GetDisplayConfig()
	if got.MaxRows != 20 || got.TableStyle != "ascii" {
		t.Errorf("GetDisplayConfig() = %+v, want MaxRows=20 TableStyle=ascii", got)
	}
}

func TestTableStringSmall(t *testing.T) {
	opts := testOptions(t)
	ids := nullable(t, opts, 1, nil, 3)
	names := keep[*Column](t)(NewStringColumn([]string{"Alice", "Bob", "Charlie"}, nil, opts...))
	idsCopy, err := Concatenate([]ColumnView{ids.View()}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	namesCopy, err := Concatenate([]ColumnView{names.View()}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	tbl := keep[*Table](t)(NewTable(idsCopy, namesCopy))
	s := tbl.String()

	for _, want := range []string{"shape: (3, 2)", "Int64", "String", "Alice", "Charlie", "null", "╭", "╯"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, s)
		}
	}
}

func TestTableStringLarge(t *testing.T) {
	opts := testOptions(t)
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i) + 0.5
	}
	col := keep[*Column](t)(NewColumn(values, nil, opts...))
	tv, err := NewTableView(col.View())
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultDisplayConfig()
	cfg.TableStyle = "ascii"
	s := tv.StringWithConfig(cfg)

	if !strings.Contains(s, "…") {
		t.Errorf("expected elided rows marker, got:\n%s", s)
	}
	if !strings.Contains(s, "0.5000") || !strings.Contains(s, "99.5000") {
		t.Errorf("expected head and tail rows, got:\n%s", s)
	}
	if strings.Contains(s, "50.5000") {
		t.Errorf("middle rows should be elided, got:\n%s", s)
	}
	if strings.Contains(s, "╭") {
		t.Errorf("ascii style should not use rounded corners, got:\n%s", s)
	}
}

func TestColumnString_Released(t *testing.T) {
	col, err := NewColumn([]int64{1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	col.Release()
	if s := col.String(); s != "Table(released)" {
		t.Errorf("released column String() = %q", s)
	}
}

func TestValueAt(t *testing.T) {
	opts := testOptions(t)
	ts := keep[*Column](t)(NewTypedColumn(TypeOf(Timestamp), []int64{int64(time.Second)}, nil, opts...))
	dur := keep[*Column](t)(NewTypedColumn(TypeOf(Duration), []int64{int64(time.Minute)}, nil, opts...))
	dec := keep[*Column](t)(NewDecimalColumn[int64](-3, []int64{12345}, nil, opts...))

	if got, ok := ValueAt(ts.View(), 0).(time.Time); !ok || !got.Equal(time.Unix(1, 0)) {
		t.Errorf("timestamp ValueAt = %v", got)
	}
	if got := ValueAt(dur.View(), 0); got != time.Minute {
		t.Errorf("duration ValueAt = %v", got)
	}
	if got := formatDisplayValue(ValueAt(dec.View(), 0), DefaultDisplayConfig()); got != "12.345" {
		t.Errorf("decimal display = %q", got)
	}
}

func TestFormatDisplayValue_Truncates(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.MaxColWidth = 8
	if got := formatDisplayValue("abcdefghijkl", cfg); got != "abcde..." {
		t.Errorf("formatDisplayValue = %q, want abcde...", got)
	}
}
