package operations

import (
	"fmt"
	"strings"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

func removeColumns(t *table.Table, p Params) (Result, error) {
	names := p.Strings("columns")
	if len(names) == 0 {
		return Result{}, apperrors.NewInvalidParameterError("columns", "select at least one column")
	}
	next, err := t.Drop(names...)
	if err != nil {
		return Result{}, err
	}
	return changed(next, fmt.Sprintf("Removed columns: %s", strings.Join(names, ", "))), nil
}

func addColumns(t *table.Table, p Params) (Result, error) {
	names := p.Strings("names")
	if len(names) == 0 {
		names = p.Strings("columns")
	}
	if len(names) == 0 {
		return Result{}, apperrors.NewInvalidParameterError("names", "enter at least one column name")
	}
	def := p.String("default", "")

	cells := make([]string, t.NumRows())
	for i := range cells {
		cells[i] = def
	}

	next := t
	for _, name := range names {
		col := table.InferColumn(name, cells)
		var err error
		if next, err = next.WithColumn(col); err != nil {
			return Result{}, err
		}
	}
	return changed(next, fmt.Sprintf("Added columns: %s", strings.Join(names, ", "))), nil
}

func renameColumn(t *table.Table, p Params) (Result, error) {
	from, err := p.RequireString("from")
	if err != nil {
		return Result{}, err
	}
	to, err := p.RequireString("to")
	if err != nil {
		return Result{}, err
	}
	next, err := t.Rename(from, to)
	if err != nil {
		return Result{}, err
	}
	if from == to {
		return unchanged(t, fmt.Sprintf("Column %s already has that name", from)), nil
	}
	return changed(next, fmt.Sprintf("Renamed column %s to %s", from, to)), nil
}
