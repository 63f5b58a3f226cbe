package operations

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/shared/testutil"
	"fintastic/internal/table"
)

func fromCSV(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords(header, rows)
	require.NoError(t, err)
	return tbl
}

func salesTable(t *testing.T) *table.Table {
	return fromCSV(t, []string{"date", "product", "quantity", "price"},
		[]string{"2024-01-01", "widget", "10", "2.5"},
		[]string{"2024-01-02", "", "", "3.5"},
		[]string{"2024-01-03", "gadget", "30", ""},
		[]string{"2024-01-04", "widget", "", "4.5"},
	)
}

func floatsOf(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	require.Equal(t, table.Numeric, col.Kind)
	return col.Floats
}

func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestRemoveBlanks(t *testing.T) {
	tbl := fromCSV(t, []string{"date", "product", "quantity", "price"},
		[]string{"2024-01-01", "widget", "10", "2.5"},
		[]string{"", "", "", ""},
		[]string{"2024-01-03", "gadget", "30", "4"},
	)

	res, err := removeBlanks(tbl, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, 4, res.Table.NumCols())
	assert.Equal(t, 3, tbl.NumRows(), "input table must not change")

	again, err := removeBlanks(res.Table, nil)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.True(t, again.Table.Equal(res.Table))
}

func TestRemoveBlanks_DropsEmptyColumns(t *testing.T) {
	tbl := fromCSV(t, []string{"a", "b"},
		[]string{"1", ""},
		[]string{"2", "NA"},
	)

	res, err := removeBlanks(tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Table.Names())

	all := fromCSV(t, []string{"a"}, []string{""}, []string{""})
	res, err = removeBlanks(all, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.NumCols())
	assert.Equal(t, 0, res.Table.NumRows())
}

func TestFillMissing(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		column    string
		want      []float64
		wantText  []string
		wantKind  table.Kind
		wantError apperrors.ErrorType
	}{
		{
			name:     "mean fills numeric columns",
			params:   Params{"method": "mean"},
			column:   "quantity",
			want:     []float64{10, 20, 30, 20},
			wantKind: table.Numeric,
		},
		{
			name:     "median fills numeric columns",
			params:   Params{"method": "median"},
			column:   "price",
			want:     []float64{2.5, 3.5, 3.5, 4.5},
			wantKind: table.Numeric,
		},
		{
			name:     "mode fills text columns",
			params:   Params{"method": "mode"},
			column:   "product",
			wantText: []string{"widget", "widget", "gadget", "widget"},
			wantKind: table.Text,
		},
		{
			name:     "numeric custom keeps numeric kind",
			params:   Params{"method": "custom", "value": float64(0)},
			column:   "quantity",
			want:     []float64{10, 0, 30, 0},
			wantKind: table.Numeric,
		},
		{
			name:     "text custom converts numeric column",
			params:   Params{"method": "custom", "value": "n/a"},
			column:   "quantity",
			wantText: []string{"10", "n/a", "30", "n/a"},
			wantKind: table.Text,
		},
		{
			name:      "unknown method",
			params:    Params{"method": "interpolate"},
			wantError: apperrors.ErrTypeInvalidParameter,
		},
		{
			name:      "custom without value",
			params:    Params{"method": "custom"},
			wantError: apperrors.ErrTypeInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := salesTable(t)
			res, err := fillMissing(tbl, tt.params)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, tt.wantError))
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Changed)

			col, ok := res.Table.Column(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, col.Kind)
			if tt.want != nil {
				assertFloats(t, tt.want, col.Floats)
			}
			if tt.wantText != nil {
				assert.Equal(t, tt.wantText, col.Strings)
			}
		})
	}
}

func TestFillMissing_MeanLeavesTextAlone(t *testing.T) {
	res, err := fillMissing(salesTable(t), Params{"method": "mean"})
	require.NoError(t, err)
	product, _ := res.Table.Column("product")
	assert.Equal(t, 1, product.MissingCount())
}

func TestFillMissing_NothingMissing(t *testing.T) {
	tbl := fromCSV(t, []string{"a"}, []string{"1"}, []string{"2"})
	res, err := fillMissing(tbl, Params{"method": "mean"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "No missing values found", res.Message)
	assert.Same(t, tbl, res.Table)
}

func TestRemoveColumns(t *testing.T) {
	tbl := salesTable(t)

	res, err := removeColumns(tbl, Params{"columns": []interface{}{"product", "price"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "quantity"}, res.Table.Names())

	_, err = removeColumns(tbl, Params{"columns": []interface{}{"price", "ghost"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidColumn))
	assert.Equal(t, 4, tbl.NumCols())
}

func TestAddColumns(t *testing.T) {
	tbl := salesTable(t)

	res, err := addColumns(tbl, Params{"names": "region, discount", "default": "0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "product", "quantity", "price", "region", "discount"}, res.Table.Names())
	assertFloats(t, []float64{0, 0, 0, 0}, floatsOf(t, res.Table, "discount"))

	res, err = addColumns(tbl, Params{"names": []interface{}{"note"}, "default": "tbd"})
	require.NoError(t, err)
	note, _ := res.Table.Column("note")
	assert.Equal(t, table.Text, note.Kind)

	_, err = addColumns(tbl, Params{"names": []interface{}{"price"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDuplicateColumn))
}

func TestAddCalculation(t *testing.T) {
	nan := math.NaN()
	series := table.MustNew(table.NewNumericColumn("sales", []float64{1, 2, 3, 4, 5}))

	tests := []struct {
		name   string
		params Params
		column string
		want   []float64
	}{
		{
			name:   "rolling average",
			params: Params{"calc": CalcRollingAverage, "column": "sales", "window": float64(3)},
			column: "sales_rolling_avg",
			want:   []float64{nan, nan, 2, 3, 4},
		},
		{
			name:   "growth percentage",
			params: Params{"calc": CalcGrowthPct, "column": "sales"},
			column: "sales_growth_pct",
			want:   []float64{nan, 100, 50, 100.0 / 3, 25},
		},
		{
			name:   "cumulative sum",
			params: Params{"calculation": CalcCumulativeSum, "column": "sales"},
			column: "sales_cumsum",
			want:   []float64{1, 3, 6, 10, 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := addCalculation(series, tt.params)
			require.NoError(t, err)
			assertFloats(t, tt.want, floatsOf(t, res.Table, tt.column))
		})
	}
}

func TestAddCalculation_SuffixesRepeatedColumns(t *testing.T) {
	tbl := table.MustNew(table.NewNumericColumn("sales", []float64{1, 2, 3}))
	params := Params{"calc": CalcCumulativeSum, "column": "sales"}

	for i := 0; i < 3; i++ {
		res, err := addCalculation(tbl, params)
		require.NoError(t, err)
		tbl = res.Table
	}
	assert.Equal(t, []string{"sales", "sales_cumsum", "sales_cumsum_2", "sales_cumsum_3"}, tbl.Names())
}

func TestAddCalculation_Errors(t *testing.T) {
	tbl := salesTable(t)

	tests := []struct {
		name   string
		params Params
		want   apperrors.ErrorType
	}{
		{"text column", Params{"calc": CalcCumulativeSum, "column": "product"}, apperrors.ErrTypeInvalidColumn},
		{"missing column", Params{"calc": CalcCumulativeSum, "column": "ghost"}, apperrors.ErrTypeInvalidColumn},
		{"zero window", Params{"calc": CalcRollingAverage, "column": "price", "window": float64(0)}, apperrors.ErrTypeInvalidParameter},
		{"unknown calculation", Params{"calc": "ewm", "column": "price"}, apperrors.ErrTypeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := addCalculation(tbl, tt.params)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestNormalize(t *testing.T) {
	tbl := table.MustNew(
		table.NewNumericColumn("x", []float64{2, 4, 4, 4, 5, 5, 7, 9}),
		table.NewNumericColumn("flat", []float64{3, 3, 3, 3, 3, 3, 3, 3}),
		table.NewTextColumn("label", []string{"a", "b", "c", "d", "e", "f", "g", "h"}, nil),
	)

	res, err := normalize(tbl, nil)
	require.NoError(t, err)

	x := floatsOf(t, res.Table, "x")
	assert.InDelta(t, 0, stat.Mean(x, nil), 1e-9)
	assert.InDelta(t, 1, stat.StdDev(x, nil), 1e-9)

	for _, v := range floatsOf(t, res.Table, "flat") {
		assert.True(t, math.IsNaN(v))
	}
	assert.Contains(t, res.Message, "flat")

	label, _ := res.Table.Column("label")
	assert.Equal(t, table.Text, label.Kind)
}

func TestDescribe_LeavesTableUntouched(t *testing.T) {
	tbl := salesTable(t)
	res, err := describe(tbl, nil)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Same(t, tbl, res.Table)
	require.Len(t, res.Summary, 2)
	assert.Equal(t, "quantity", res.Summary[0].Column)
	assert.Equal(t, 2, res.Summary[0].Count)
}

func TestTransformDates(t *testing.T) {
	tbl := fromCSV(t, []string{"when", "amount"},
		[]string{"2024-03-01", "1"},
		[]string{"not a date", "2"},
		[]string{"", "3"},
	)

	res, err := transformDates(tbl, Params{"column": "when"})
	require.NoError(t, err)
	col, _ := res.Table.Column("when")
	assert.Equal(t, table.Date, col.Kind)
	assert.Equal(t, []bool{true, false, false}, col.Valid)
	assert.Contains(t, res.Message, "1 values could not be parsed")

	_, err = transformDates(tbl, Params{"column": "amount"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidColumn))

	numericOnly := table.MustNew(table.NewNumericColumn("amount", []float64{1}))
	_, err = transformDates(numericOnly, Params{"column": "amount"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNoDateColumns))
}

func TestRenameColumn_RoundTrip(t *testing.T) {
	tbl := salesTable(t)

	res, err := renameColumn(tbl, Params{"from": "price", "to": "unit_price"})
	require.NoError(t, err)
	assert.True(t, res.Table.Has("unit_price"))

	back, err := renameColumn(res.Table, Params{"from": "unit_price", "to": "price"})
	require.NoError(t, err)
	assert.True(t, back.Table.Equal(tbl))

	_, err = renameColumn(tbl, Params{"from": "price", "to": "product"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDuplicateColumn))
	_, err = renameColumn(tbl, Params{"from": "ghost", "to": "x"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidColumn))
}

func TestPipeline_Apply(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	p := NewPipeline(DefaultRegistry(), logger, nil)

	res, err := p.Apply(context.Background(), salesTable(t), OpRemoveColumns, Params{"columns": "product"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.NumCols())
	assert.True(t, handler.ContainsMessage("operation applied"))

	_, err = p.Apply(context.Background(), salesTable(t), "pivot", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	_, err = p.Apply(context.Background(), salesTable(t), OpRenameColumn, Params{"from": "ghost", "to": "x"})
	require.Error(t, err)
	assert.True(t, handler.ContainsMessage("operation failed"))
}
