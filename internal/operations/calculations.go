package operations

import (
	"fmt"
	"strings"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// Calculations accepted by add_calculation
const (
	CalcRollingAverage = "rolling_average"
	CalcGrowthPct      = "growth_pct"
	CalcCumulativeSum  = "cumulative_sum"
)

var calcSuffix = map[string]string{
	CalcRollingAverage: "_rolling_avg",
	CalcGrowthPct:      "_growth_pct",
	CalcCumulativeSum:  "_cumsum",
}

func addCalculation(t *table.Table, p Params) (Result, error) {
	calc := strings.ToLower(strings.TrimSpace(p.String("calc", p.String("calculation", ""))))
	suffix, ok := calcSuffix[calc]
	if !ok {
		return Result{}, apperrors.NewInvalidParameterError("calc", fmt.Sprintf("unknown calculation %q", calc))
	}
	name, err := p.RequireString("column")
	if err != nil {
		return Result{}, err
	}
	col, err := numericColumn(t, name)
	if err != nil {
		return Result{}, err
	}

	var values []float64
	switch calc {
	case CalcRollingAverage:
		window, err := p.Int("window", 3)
		if err != nil {
			return Result{}, err
		}
		if window < 1 {
			return Result{}, apperrors.NewInvalidParameterError("window", "must be at least 1")
		}
		values = table.RollingMean(col.Floats, window)
	case CalcGrowthPct:
		values = table.PctChange(col.Floats)
	case CalcCumulativeSum:
		values = table.CumSum(col.Floats)
	}

	target := uniqueName(t, name+suffix)
	next, err := t.WithColumn(table.NewNumericColumn(target, values))
	if err != nil {
		return Result{}, err
	}
	return changed(next, fmt.Sprintf("Added column %s", target)), nil
}

// uniqueName returns base, or base_2, base_3 and so on if taken.
func uniqueName(t *table.Table, base string) string {
	if !t.Has(base) {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if !t.Has(name) {
			return name
		}
	}
}
