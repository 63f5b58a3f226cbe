package exporter

import (
	"math"

	"github.com/shopspring/decimal"

	"fintastic/internal/table"
)

// formatFloat renders a finite number without exponent or trailing zeros.
// Undefined values render as an empty cell.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return decimal.NewFromFloat(f).String()
}

// formatCell renders cell i of c for CSV output.
func formatCell(c *table.Column, i int) string {
	if c.Kind == table.Numeric {
		return formatFloat(c.Floats[i])
	}
	return c.Format(i)
}

// records renders tbl as a header plus string rows.
func records(tbl *table.Table) ([]string, [][]string) {
	cols := tbl.Columns()
	rows := make([][]string, tbl.NumRows())
	for i := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = formatCell(c, i)
		}
		rows[i] = row
	}
	return tbl.Names(), rows
}
