package table

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// RollingMean returns the trailing mean over window values. A position whose
// window is incomplete or touches a missing value is NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}

	start := -1
	flush := func(end int) {
		if start < 0 || end-start < window {
			return
		}
		sma := trend.NewSmaWithPeriod[float64](window)
		means := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values[start:end])))
		offset := start + window - 1
		for j, m := range means {
			if offset+j < end {
				out[offset+j] = m
			}
		}
	}
	for i, v := range values {
		if math.IsNaN(v) {
			flush(i)
			start = -1
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(values))
	return out
}

// PctChange returns the percentage change from the previous value. The first
// position, positions next to a missing value and zero bases are NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		prev, cur := values[i-1], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (cur - prev) / prev * 100
	}
	return out
}

// CumSum returns the running total. Missing values stay missing and do not
// interrupt the total.
func CumSum(values []float64) []float64 {
	out := make([]float64, len(values))
	total := 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		total += v
		out[i] = total
	}
	return out
}
