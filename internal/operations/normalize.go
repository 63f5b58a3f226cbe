package operations

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"fintastic/internal/table"
)

func normalize(t *table.Table, _ Params) (Result, error) {
	numeric := t.ColumnsOfKind(table.Numeric)
	if len(numeric) == 0 {
		return unchanged(t, "No numeric columns to normalize"), nil
	}

	next := t
	var constant []string
	for _, c := range numeric {
		present := c.Present()
		mean := math.NaN()
		if len(present) > 0 {
			mean = stat.Mean(present, nil)
		}
		std := table.SampleStdDev(present)
		degenerate := math.IsNaN(std) || std == 0

		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if degenerate || math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			out[i] = (v - mean) / std
		}
		if degenerate {
			constant = append(constant, c.Name)
		}
		var err error
		if next, err = next.ReplaceColumn(table.NewNumericColumn(c.Name, out)); err != nil {
			return Result{}, err
		}
	}

	msg := fmt.Sprintf("Normalized %d numeric columns", len(numeric))
	if len(constant) > 0 {
		msg += fmt.Sprintf("; zero variance, set to missing: %s", strings.Join(constant, ", "))
	}
	return changed(next, msg), nil
}
