package table

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fintastic/internal/errors"
)

func salesTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromRecords(
		[]string{"date", "product", "quantity", "price"},
		[][]string{
			{"2024-01-01", "widget", "3", "9.5"},
			{"", "", "", ""},
			{"2024-01-03", "gadget", "", "12"},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestNew_Invariants(t *testing.T) {
	_, err := New(NewNumericColumn("a", []float64{1, 2}), NewNumericColumn("a", []float64{3, 4}))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDuplicateColumn))

	_, err = New(NewNumericColumn("a", []float64{1, 2}), NewNumericColumn("b", []float64{3}))
	assert.Error(t, err)

	tbl, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestFromRecords_Inference(t *testing.T) {
	tbl := salesTable(t)

	require.Equal(t, []string{"date", "product", "quantity", "price"}, tbl.Names())
	assert.Equal(t, 3, tbl.NumRows())

	date, _ := tbl.Column("date")
	assert.Equal(t, Text, date.Kind)
	qty, _ := tbl.Column("quantity")
	assert.Equal(t, Numeric, qty.Kind)
	assert.True(t, math.IsNaN(qty.Floats[2]))
	assert.True(t, tbl.RowMissing(1))
	assert.False(t, tbl.RowMissing(0))
	assert.Equal(t, 5, tbl.MissingCount())
}

func TestFromRecords_HeaderCleanup(t *testing.T) {
	tbl, err := FromRecords([]string{"a", "a", " "}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2"}, tbl.Names())

	_, err = FromRecords([]string{"a"}, [][]string{{"1", "2"}})
	assert.Error(t, err)
}

func TestInferColumn_MissingTokens(t *testing.T) {
	col := InferColumn("v", []string{"1", "NA", "n/a", " 2.5 ", "null"})
	require.Equal(t, Numeric, col.Kind)
	assert.Equal(t, 3, col.MissingCount())
	assert.Equal(t, 2.5, col.Floats[3])

	text := InferColumn("v", []string{"1", "x", ""})
	require.Equal(t, Text, text.Kind)
	assert.True(t, text.IsMissing(2))
	assert.Equal(t, "1", text.Format(0))

	inf := InferColumn("v", []string{"1", "inf"})
	assert.Equal(t, Text, inf.Kind)
}

func TestDropAndRename(t *testing.T) {
	tbl := salesTable(t)

	_, err := tbl.Drop("price", "nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidColumn))
	assert.Equal(t, 4, tbl.NumCols(), "failed drop must leave the table intact")

	dropped, err := tbl.Drop("price", "product")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "quantity"}, dropped.Names())

	renamed, err := tbl.Rename("price", "unit_price")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "product", "quantity", "unit_price"}, renamed.Names())
	assert.True(t, tbl.Has("price"))

	_, err = tbl.Rename("price", "quantity")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDuplicateColumn))

	back, err := renamed.Rename("unit_price", "price")
	require.NoError(t, err)
	assert.True(t, back.Equal(tbl))
}

func TestSelectRowsAndHead(t *testing.T) {
	tbl := salesTable(t)

	sel := tbl.SelectRows([]int{2, 0})
	assert.Equal(t, 2, sel.NumRows())
	product, _ := sel.Column("product")
	assert.Equal(t, "gadget", product.Format(0))

	assert.Equal(t, 1, tbl.Head(1).NumRows())
	assert.Equal(t, 3, tbl.Head(10).NumRows())
}

func TestRecords(t *testing.T) {
	tbl := salesTable(t)
	header, rows := tbl.Records()
	assert.Equal(t, []string{"date", "product", "quantity", "price"}, header)
	assert.Equal(t, []string{"2024-01-01", "widget", "3", "9.5"}, rows[0])
	assert.Equal(t, []string{"", "", "", ""}, rows[1])
}

func TestJSONRoundTrip(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tbl := MustNew(
		NewNumericColumn("v", []float64{1.5, math.NaN()}),
		NewTextColumn("s", []string{"a", ""}, []bool{true, false}),
		NewDateColumn("d", []time.Time{day, {}}, []bool{true, false}),
	)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, tbl.Equal(&decoded))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"Jan 5, 2023", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-02 13:45:00", time.Date(2024, 1, 2, 13, 45, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"2024-13-40", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}
