package keel

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DisplayConfig controls how tables and columns are formatted when printed.
type DisplayConfig struct {
	// MaxRows is the maximum number of rows to display.
	// Longer tables show head and tail rows with "…" in between.
	// Default: 10 (5 head + 5 tail)
	MaxRows int

	// MaxColWidth is the maximum width for column content.
	// Default: 25
	MaxColWidth int

	// MinColWidth is the minimum column width for alignment.
	// Default: 6
	MinColWidth int

	// FloatPrecision is the number of decimal places for float values.
	// Default: 4
	FloatPrecision int

	// ShowTypes controls whether to display element types under the
	// column headers.
	// Default: true
	ShowTypes bool

	// TableStyle controls the table border style.
	// Options: "rounded", "ascii"
	// Default: "rounded"
	TableStyle string
}

// Table style characters
type tableChars struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	topT, bottomT, leftT, rightT, cross        string
}

var tableStyles = map[string]tableChars{
	"rounded": {
		topLeft: "╭", topRight: "╮", bottomLeft: "╰", bottomRight: "╯",
		horizontal: "─", vertical: "│",
		topT: "┬", bottomT: "┴", leftT: "├", rightT: "┤", cross: "┼",
	},
	"ascii": {
		topLeft: "+", topRight: "+", bottomLeft: "+", bottomRight: "+",
		horizontal: "-", vertical: "|",
		topT: "+", bottomT: "+", leftT: "+", rightT: "+", cross: "+",
	},
}

// DefaultDisplayConfig returns the default display configuration.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		MaxRows:        10,
		MaxColWidth:    25,
		MinColWidth:    6,
		FloatPrecision: 4,
		ShowTypes:      true,
		TableStyle:     "rounded",
	}
}

var (
	globalDisplayConfig = DefaultDisplayConfig()
	displayConfigMu     sync.RWMutex
)

// SetDisplayConfig sets the global display configuration.
func SetDisplayConfig(cfg DisplayConfig) {
	displayConfigMu.Lock()
	defer displayConfigMu.Unlock()
	globalDisplayConfig = cfg
}

// GetDisplayConfig returns the current global display configuration.
func GetDisplayConfig() DisplayConfig {
	displayConfigMu.RLock()
	defer displayConfigMu.RUnlock()
	return globalDisplayConfig
}

// ValueAt returns row i of v as a Go value: nil for null rows, bool, string,
// time.Time, time.Duration, a fixedpoint value or the numeric value.
func ValueAt(v ColumnView, i int) interface{} {
	if !v.IsValid(i) {
		return nil
	}
	switch v.typ.Kind {
	case Bool:
		return Values[uint8](v)[i] != 0
	case Int8:
		return Values[int8](v)[i]
	case Int16:
		return Values[int16](v)[i]
	case Int32:
		return Values[int32](v)[i]
	case Int64:
		return Values[int64](v)[i]
	case UInt8:
		return Values[uint8](v)[i]
	case UInt16:
		return Values[uint16](v)[i]
	case UInt32:
		return Values[uint32](v)[i]
	case UInt64:
		return Values[uint64](v)[i]
	case Float32:
		return Values[float32](v)[i]
	case Float64:
		return Values[float64](v)[i]
	case Timestamp:
		return time.Unix(0, Values[int64](v)[i]).UTC()
	case Duration:
		return time.Duration(Values[int64](v)[i])
	case Decimal32:
		return Decimal32At(v, i)
	case Decimal64:
		return Decimal64At(v, i)
	case String:
		return v.StringAt(i)
	default:
		return nil
	}
}

// formatDisplayValue formats a value for display with the given configuration.
func formatDisplayValue(val interface{}, cfg DisplayConfig) string {
	var s string
	switch v := val.(type) {
	case nil:
		s = "null"
	case float64:
		s = fmt.Sprintf("%.*f", cfg.FloatPrecision, v)
	case float32:
		s = fmt.Sprintf("%.*f", cfg.FloatPrecision, v)
	case time.Time:
		s = v.Format(time.RFC3339Nano)
	default:
		s = fmt.Sprintf("%v", v)
	}

	// Truncate if too long
	if len(s) > cfg.MaxColWidth {
		s = s[:cfg.MaxColWidth-3] + "..."
	}
	return s
}

// displayRows picks the rows to show; -1 marks the elided middle.
func displayRows(n int, cfg DisplayConfig) []int {
	if n <= cfg.MaxRows {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	head := cfg.MaxRows / 2
	tail := cfg.MaxRows - head
	rows := make([]int, 0, cfg.MaxRows+1)
	for i := 0; i < head; i++ {
		rows = append(rows, i)
	}
	rows = append(rows, -1)
	for i := n - tail; i < n; i++ {
		rows = append(rows, i)
	}
	return rows
}

// StringWithConfig formats the table view using the provided configuration.
// Columns are headed by their position.
func (tv TableView) StringWithConfig(cfg DisplayConfig) string {
	if tv.NumColumns() == 0 {
		return "Table(empty)"
	}
	if err := tv.validate(); err != nil {
		return "Table(released)"
	}

	chars, ok := tableStyles[cfg.TableStyle]
	if !ok {
		chars = tableStyles["rounded"]
	}
	rows := displayRows(tv.rows, cfg)

	// Render every visible cell once and size the columns from them.
	headers := make([]string, len(tv.columns))
	types := make([]string, len(tv.columns))
	cells := make([][]string, len(tv.columns))
	widths := make([]int, len(tv.columns))
	for c, col := range tv.columns {
		headers[c] = fmt.Sprintf("%d", c)
		types[c] = col.typ.String()
		widths[c] = max(cfg.MinColWidth, len(headers[c]))
		if cfg.ShowTypes {
			widths[c] = max(widths[c], len(types[c]))
		}
		cells[c] = make([]string, len(rows))
		for r, row := range rows {
			if row < 0 {
				cells[c][r] = "…"
				continue
			}
			cells[c][r] = formatDisplayValue(ValueAt(col, row), cfg)
			widths[c] = max(widths[c], len(cells[c][r]))
		}
		widths[c] = min(widths[c], cfg.MaxColWidth)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("shape: (%d, %d)\n", tv.rows, len(tv.columns)))

	border := func(left, mid, right string) {
		sb.WriteString(left)
		for c, w := range widths {
			if c > 0 {
				sb.WriteString(mid)
			}
			sb.WriteString(strings.Repeat(chars.horizontal, w+2))
		}
		sb.WriteString(right)
		sb.WriteString("\n")
	}
	line := func(values []string, leftAlign bool) {
		sb.WriteString(chars.vertical)
		for c, s := range values {
			if leftAlign {
				sb.WriteString(fmt.Sprintf(" %-*s ", widths[c], s))
			} else {
				sb.WriteString(fmt.Sprintf(" %*s ", widths[c], s))
			}
			sb.WriteString(chars.vertical)
		}
		sb.WriteString("\n")
	}

	border(chars.topLeft, chars.topT, chars.topRight)
	line(headers, true)
	if cfg.ShowTypes {
		line(types, true)
	}
	border(chars.leftT, chars.cross, chars.rightT)
	row := make([]string, len(tv.columns))
	for r := range rows {
		for c := range tv.columns {
			row[c] = cells[c][r]
		}
		line(row, false)
	}
	border(chars.bottomLeft, chars.bottomT, chars.bottomRight)
	return strings.TrimSuffix(sb.String(), "\n")
}

// String formats the table using the global display configuration.
func (t *Table) String() string {
	return t.View().StringWithConfig(GetDisplayConfig())
}

// String formats the column using the global display configuration.
func (c *Column) String() string {
	tv := TableView{columns: []ColumnView{c.View()}, rows: c.size}
	return tv.StringWithConfig(GetDisplayConfig())
}
