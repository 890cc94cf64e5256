package keel

// Table is an ordered set of owning columns with identical row counts.
type Table struct {
	columns []*Column
}

// NewTable creates a table that takes ownership of cols.
func NewTable(cols ...*Column) (*Table, error) {
	for i, c := range cols {
		if c.Size() != cols[0].Size() {
			return nil, invalidArgument("column %d has %d rows, column 0 has %d", i, c.Size(), cols[0].Size())
		}
	}
	return &Table{columns: cols}, nil
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the row count shared by every column.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Size()
}

// Column returns column i.
func (t *Table) Column(i int) *Column { return t.columns[i] }

// Columns returns the table's columns.
func (t *Table) Columns() []*Column { return t.columns }

// View returns a view of the whole table.
func (t *Table) View() TableView {
	views := make([]ColumnView, len(t.columns))
	for i, c := range t.columns {
		views[i] = c.View()
	}
	return TableView{columns: views, rows: t.NumRows()}
}

// Release releases every column of the table.
func (t *Table) Release() {
	if t == nil {
		return
	}
	releaseColumns(t.columns)
}

func releaseTables(tables []*Table) {
	for _, t := range tables {
		t.Release()
	}
}

// TableView is a non-owning view of a table.
type TableView struct {
	columns []ColumnView
	rows    int
}

// NewTableView groups column views of identical size into a table view.
func NewTableView(cols ...ColumnView) (TableView, error) {
	for i, c := range cols {
		if c.Size() != cols[0].Size() {
			return TableView{}, invalidArgument("column %d has %d rows, column 0 has %d", i, c.Size(), cols[0].Size())
		}
	}
	tv := TableView{columns: cols}
	if len(cols) > 0 {
		tv.rows = cols[0].Size()
	}
	return tv, nil
}

// NumColumns returns the number of columns.
func (tv TableView) NumColumns() int { return len(tv.columns) }

// NumRows returns the row count.
func (tv TableView) NumRows() int { return tv.rows }

// Column returns column i.
func (tv TableView) Column(i int) ColumnView { return tv.columns[i] }

// Columns returns the column views.
func (tv TableView) Columns() []ColumnView { return tv.columns }

func (tv TableView) validate() error {
	for _, c := range tv.columns {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// checkCompatible reports ErrInvalidArgument when a and b differ in column
// count and ErrTypeMismatch when any column pair differs in type.
func checkCompatible(a, b TableView) error {
	if a.NumColumns() != b.NumColumns() {
		return invalidArgument("tables have %d and %d columns", a.NumColumns(), b.NumColumns())
	}
	for i := range a.columns {
		if a.columns[i].typ != b.columns[i].typ {
			return typeMismatch("column %d: %s and %s", i, a.columns[i].typ, b.columns[i].typ)
		}
	}
	return nil
}
