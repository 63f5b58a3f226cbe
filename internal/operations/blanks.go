package operations

import (
	"fmt"

	"fintastic/internal/table"
)

func removeBlanks(t *table.Table, _ Params) (Result, error) {
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if !t.RowMissing(i) {
			keep = append(keep, i)
		}
	}
	droppedRows := t.NumRows() - len(keep)
	next := t
	if droppedRows > 0 {
		next = t.SelectRows(keep)
	}

	var blankCols []string
	for _, c := range next.Columns() {
		if c.MissingCount() == c.Len() {
			blankCols = append(blankCols, c.Name)
		}
	}
	if len(blankCols) > 0 {
		var err error
		if next, err = next.Drop(blankCols...); err != nil {
			return Result{}, err
		}
	}

	if droppedRows == 0 && len(blankCols) == 0 {
		return unchanged(t, "No blank rows or columns found"), nil
	}
	return changed(next, fmt.Sprintf("Removed %d blank rows and %d blank columns", droppedRows, len(blankCols))), nil
}
