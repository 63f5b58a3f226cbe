package operations

import (
	"fmt"
	"time"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

func transformDates(t *table.Table, p Params) (Result, error) {
	candidates := t.ColumnsOfKind(table.Text, table.Date)
	if len(candidates) == 0 {
		return Result{}, apperrors.NewNoDateColumnsError()
	}

	name := p.String("column", "")
	if name == "" {
		name = candidates[0].Name
	}
	col, ok := t.Column(name)
	if !ok {
		return Result{}, apperrors.NewInvalidColumnError(name, "column does not exist")
	}
	switch col.Kind {
	case table.Date:
		return unchanged(t, fmt.Sprintf("Column %s already holds dates", name)), nil
	case table.Text:
	default:
		return Result{}, apperrors.NewInvalidColumnError(name, "column does not hold text or dates")
	}

	n := col.Len()
	times := make([]time.Time, n)
	valid := make([]bool, n)
	failed := 0
	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			continue
		}
		d, ok := table.ParseDate(col.Strings[i])
		if !ok {
			failed++
			continue
		}
		times[i], valid[i] = d, true
	}

	next, err := t.ReplaceColumn(table.NewDateColumn(name, times, valid))
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Converted column %s to dates", name)
	if failed > 0 {
		msg += fmt.Sprintf("; %d values could not be parsed and were set to missing", failed)
	}
	return changed(next, msg), nil
}
