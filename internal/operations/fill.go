package operations

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// Fill methods
const (
	FillMean   = "mean"
	FillMedian = "median"
	FillMode   = "mode"
	FillCustom = "custom"
)

func fillMissing(t *table.Table, p Params) (Result, error) {
	method := strings.ToLower(strings.TrimSpace(p.String("method", FillMean)))

	var custom string
	switch method {
	case FillMean, FillMedian, FillMode:
	case FillCustom:
		if !p.Has("value") {
			return Result{}, apperrors.NewInvalidParameterError("value", "is required for custom fill")
		}
		custom = p.String("value", "")
	default:
		return Result{}, apperrors.NewInvalidParameterError("method", fmt.Sprintf("unknown fill method %q", method))
	}

	if t.MissingCount() == 0 {
		return unchanged(t, "No missing values found"), nil
	}

	cols := t.Columns()
	filled := 0
	for i, c := range cols {
		missing := c.MissingCount()
		if missing == 0 {
			continue
		}
		var out *table.Column
		switch method {
		case FillMean, FillMedian:
			if c.Kind != table.Numeric {
				continue
			}
			out = fillNumeric(c, centre(c.Present(), method))
		case FillMode:
			out = fillMode(c)
		case FillCustom:
			out = fillCustom(c, custom)
		}
		if out == nil {
			continue
		}
		filled += missing - out.MissingCount()
		cols[i] = out
	}

	if filled == 0 {
		return unchanged(t, fmt.Sprintf("No missing values could be filled with %s", method)), nil
	}
	next, err := table.New(cols...)
	if err != nil {
		return Result{}, err
	}
	return changed(next, fmt.Sprintf("Filled %d missing values using %s", filled, method)), nil
}

func centre(values []float64, method string) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if method == FillMean {
		return stat.Mean(values, nil)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return table.Quantile(sorted, 0.5)
}

// fillNumeric returns nil when v is undefined, i.e. the column has no values.
func fillNumeric(c *table.Column, v float64) *table.Column {
	if math.IsNaN(v) {
		return nil
	}
	out := c.Clone()
	for i, x := range out.Floats {
		if math.IsNaN(x) {
			out.Floats[i] = v
		}
	}
	return out
}

// fillMode fills with the most frequent present value. Ties go to the
// smallest value in the column's natural order.
func fillMode(c *table.Column) *table.Column {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		key := c.Format(i)
		if _, seen := first[key]; !seen {
			first[key] = i
		}
		counts[key]++
	}
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if counts[keys[a]] != counts[keys[b]] {
			return counts[keys[a]] > counts[keys[b]]
		}
		return lessCell(c, first[keys[a]], first[keys[b]])
	})
	src := first[keys[0]]

	out := c.Clone()
	for i := 0; i < out.Len(); i++ {
		if !out.IsMissing(i) {
			continue
		}
		switch out.Kind {
		case table.Numeric:
			out.Floats[i] = c.Floats[src]
		case table.Text:
			out.Strings[i] = c.Strings[src]
			out.Valid[i] = true
		case table.Date:
			out.Times[i] = c.Times[src]
			out.Valid[i] = true
		}
	}
	return out
}

func lessCell(c *table.Column, a, b int) bool {
	switch c.Kind {
	case table.Numeric:
		return c.Floats[a] < c.Floats[b]
	case table.Date:
		return c.Times[a].Before(c.Times[b])
	default:
		return c.Strings[a] < c.Strings[b]
	}
}

// fillCustom writes the literal into every missing cell. A literal that does
// not fit a numeric or date column turns that column into text.
func fillCustom(c *table.Column, literal string) *table.Column {
	switch c.Kind {
	case table.Numeric:
		if v, ok := table.ParseNumber(literal); ok {
			return fillNumeric(c, v)
		}
	case table.Date:
		if d, ok := table.ParseDate(literal); ok {
			out := c.Clone()
			for i := range out.Valid {
				if !out.Valid[i] {
					out.Times[i] = d
					out.Valid[i] = true
				}
			}
			return out
		}
	}

	out := c.AsText()
	for i := range out.Valid {
		if !out.Valid[i] {
			out.Strings[i] = literal
			out.Valid[i] = true
		}
	}
	return out
}
