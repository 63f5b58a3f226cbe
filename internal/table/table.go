package table

import (
	"fmt"

	apperrors "fintastic/internal/errors"
)

// Table is an ordered set of equally long, uniquely named columns.
type Table struct {
	columns []*Column
	index   map[string]int
}

// New assembles a table, enforcing equal lengths and unique names.
func New(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("nil column")
		}
		if _, exists := t.index[c.Name]; exists {
			return nil, apperrors.NewDuplicateColumnError(c.Name)
		}
		if len(t.columns) > 0 && c.Len() != t.columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), t.columns[0].Len())
		}
		if (c.Kind == Text || c.Kind == Date) && len(c.Valid) != c.Len() {
			return nil, fmt.Errorf("column %q validity mask has %d entries, expected %d", c.Name, len(c.Valid), c.Len())
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for fixtures whose shape is known to be valid.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnsOfKind returns the columns holding the given kinds, in table order.
func (t *Table) ColumnsOfKind(kinds ...Kind) []*Column {
	var out []*Column
	for _, c := range t.columns {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Clone()
	}
	return MustNew(cols...)
}

// WithColumn returns a new table with col appended.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	if t.Has(col.Name) {
		return nil, apperrors.NewDuplicateColumnError(col.Name)
	}
	if t.NumCols() > 0 && col.Len() != t.NumRows() {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name, col.Len(), t.NumRows())
	}
	return New(append(t.Columns(), col)...)
}

// ReplaceColumn returns a new table where the column of the same name is
// swapped for col, keeping its position.
func (t *Table) ReplaceColumn(col *Column) (*Table, error) {
	i, ok := t.index[col.Name]
	if !ok {
		return nil, apperrors.NewInvalidColumnError(col.Name, "column does not exist")
	}
	cols := t.Columns()
	cols[i] = col
	return New(cols...)
}

// Drop returns a new table without the named columns. Every name must exist;
// otherwise the receiver is left as is and InvalidColumn is returned.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !t.Has(n) {
			return nil, apperrors.NewInvalidColumnError(n, "column does not exist")
		}
		drop[n] = true
	}
	var kept []*Column
	for _, c := range t.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return Empty(), nil
	}
	return New(kept...)
}

// Rename returns a new table with column from renamed to to.
func (t *Table) Rename(from, to string) (*Table, error) {
	i, ok := t.index[from]
	if !ok {
		return nil, apperrors.NewInvalidColumnError(from, "column does not exist")
	}
	if from == to {
		return t, nil
	}
	if t.Has(to) {
		return nil, apperrors.NewDuplicateColumnError(to)
	}
	cols := t.Columns()
	cols[i] = cols[i].Renamed(to)
	return New(cols...)
}

// SelectRows returns a new table holding only the given row positions.
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Select(rows)
	}
	return MustNew(cols...)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= t.NumRows() {
		return t
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.SelectRows(rows)
}

// RowMissing reports whether every cell of row i is missing.
func (t *Table) RowMissing(i int) bool {
	for _, c := range t.columns {
		if !c.IsMissing(i) {
			return false
		}
	}
	return true
}

// MissingCount returns the number of missing cells across the table.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.columns {
		n += c.MissingCount()
	}
	return n
}

// Records renders the table as a header plus string rows.
func (t *Table) Records() ([]string, [][]string) {
	rows := make([][]string, t.NumRows())
	for i := range rows {
		row := make([]string, len(t.columns))
		for j, c := range t.columns {
			row[j] = c.Format(i)
		}
		rows[i] = row
	}
	return t.Names(), rows
}

// Equal reports whether two tables hold the same columns, kinds and cells.
func (t *Table) Equal(o *Table) bool {
	if o == nil || t.NumCols() != o.NumCols() {
		return false
	}
	for i, c := range t.columns {
		if !c.equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// Schema describes the columns for API responses.
type Schema struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Schema returns name, kind and missing count per column.
func (t *Table) Schema() []Schema {
	out := make([]Schema, len(t.columns))
	for i, c := range t.columns {
		out[i] = Schema{Name: c.Name, Kind: c.Kind.String(), Missing: c.MissingCount()}
	}
	return out
}
