package table

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 3.25, Quantile(sorted, 0.75), 1e-12)
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.3))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestSummarize(t *testing.T) {
	col := NewNumericColumn("x", []float64{4, math.NaN(), 1, 3, 2})
	s := Summarize(col)

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 2.5, s.Q50, 1e-12)
}

func TestDescribeTable(t *testing.T) {
	tbl := MustNew(
		NewTextColumn("product", []string{"a", "b"}, nil),
		NewNumericColumn("price", []float64{10, 20}),
	)

	desc := DescribeTable(tbl)
	assert.Equal(t, []string{"statistic", "price"}, desc.Names())
	assert.Equal(t, len(SummaryLabels), desc.NumRows())
	price, _ := desc.Column("price")
	assert.Equal(t, 2.0, price.Floats[0])
	assert.Equal(t, 15.0, price.Floats[1])
}

func TestSummaryJSONWithUndefinedStd(t *testing.T) {
	s := Summarize(NewNumericColumn("x", []float64{5}))
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["std"])
	assert.Equal(t, 5.0, decoded["mean"])
}
