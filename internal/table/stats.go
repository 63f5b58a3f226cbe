package table

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics for one numeric column. Std is the
// sample standard deviation; quartiles use linear interpolation between
// closest ranks.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Q50    float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// SummaryLabels is the row order of DescribeTable.
var SummaryLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Present returns the non-missing values of a numeric column.
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Summarize computes a Summary over the present values of a numeric column.
func Summarize(c *Column) Summary {
	s := Summary{Column: c.Name}
	values := c.Present()
	s.Count = len(values)
	if s.Count == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Std = SampleStdDev(sorted)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.50)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}

// SampleStdDev returns the n-1 standard deviation, NaN below two values.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

// Quantile returns the p-quantile of sorted values, interpolating linearly
// between the two closest ranks.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if hi >= n {
		hi = n - 1
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Describe summarizes every numeric column in table order.
func Describe(t *Table) []Summary {
	numeric := t.ColumnsOfKind(Numeric)
	out := make([]Summary, len(numeric))
	for i, c := range numeric {
		out[i] = Summarize(c)
	}
	return out
}

// DescribeTable lays Describe out as a table: a "statistic" label column
// followed by one numeric column per summarized column.
func DescribeTable(t *Table) *Table {
	summaries := Describe(t)
	label := "statistic"
	for t.Has(label) {
		label += "_"
	}
	cols := []*Column{NewTextColumn(label, append([]string(nil), SummaryLabels...), nil)}
	for _, s := range summaries {
		cols = append(cols, NewNumericColumn(s.Column, []float64{
			float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max,
		}))
	}
	return MustNew(cols...)
}

// MarshalJSON writes undefined statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"column": s.Column,
		"count":  s.Count,
		"mean":   finiteOrNil(s.Mean),
		"std":    finiteOrNil(s.Std),
		"min":    finiteOrNil(s.Min),
		"25%":    finiteOrNil(s.Q25),
		"50%":    finiteOrNil(s.Q50),
		"75%":    finiteOrNil(s.Q75),
		"max":    finiteOrNil(s.Max),
	})
}

func finiteOrNil(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
