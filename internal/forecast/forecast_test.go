package forecast

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/shared/testutil"
	"fintastic/internal/table"
)

func series(values ...float64) Series {
	return Series{Name: "sales", Values: values}
}

// seasonalTable returns n daily rows with a trend and a period-12 cycle.
func seasonalTable(n int) *table.Table {
	dates := make([]time.Time, n)
	values := make([]float64, n)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range values {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = 100 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/12)
	}
	return table.MustNew(
		table.NewDateColumn("date", dates, nil),
		table.NewNumericColumn("sales", values),
	)
}

// revenueSeries returns n mean-reverting values around level, with AR(1)
// coefficient phi and seeded noise of the given scale.
func revenueSeries(n int, level, phi, noise float64) []float64 {
	rng := rand.New(rand.NewSource(7))
	out := make([]float64, n)
	prev := level
	for i := range out {
		prev = level + phi*(prev-level) + noise*rng.NormFloat64()
		out[i] = prev
	}
	return out
}

// assertNearHistory checks every forecast lies within one history range of
// the observed minimum and maximum.
func assertNearHistory(t *testing.T, history, got []float64) {
	t.Helper()
	lo, hi := history[0], history[0]
	for _, v := range history {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	for i, v := range got {
		assert.GreaterOrEqual(t, v, lo-span, "step %d", i+1)
		assert.LessOrEqual(t, v, hi+span, "step %d", i+1)
	}
}

func TestLinearRegression_ExtendsLine(t *testing.T) {
	fitted, err := linearRegressionModel().Fit(series(1, 2, 3, 4, 5), Params{})
	require.NoError(t, err)

	got, err := fitted.Predict(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 6, got[0], 1e-9)
	assert.InDelta(t, 7, got[1], 1e-9)
	assert.InDelta(t, 8, got[2], 1e-9)
}

func TestRegressionModels_DropMissingValues(t *testing.T) {
	nan := math.NaN()
	fitted, err := linearRegressionModel().Fit(series(1, nan, 2, 3, nan, 4, 5), Params{})
	require.NoError(t, err)
	got, err := fitted.Predict(1)
	require.NoError(t, err)
	assert.InDelta(t, 6, got[0], 1e-9)
}

func TestARIMA(t *testing.T) {
	t.Run("too few points", func(t *testing.T) {
		_, err := (&arimaModel{}).Fit(series(1, 2), Params{"order": "(1,1,1)"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))
	})

	t.Run("bad order", func(t *testing.T) {
		for _, order := range []string{"(1,1)", "(a,1,1)", "(1,-1,1)"} {
			_, err := (&arimaModel{}).Fit(series(1, 2, 3), Params{"order": order})
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter), order)
		}
	})

	t.Run("differenced trend continues", func(t *testing.T) {
		values := make([]float64, 40)
		for i := range values {
			values[i] = 10 + 2*float64(i)
		}
		fitted, err := (&arimaModel{}).Fit(series(values...), Params{"order": "(0,1,0)"})
		require.NoError(t, err)
		got, err := fitted.Predict(3)
		require.NoError(t, err)
		assert.InDelta(t, 90, got[0], 1e-9)
		assert.InDelta(t, 92, got[1], 1e-9)
		assert.InDelta(t, 94, got[2], 1e-9)
	})
}

func TestARIMA_RealisticScale(t *testing.T) {
	history := revenueSeries(60, 6250, 0.6, 400)

	for _, order := range []string{"(1,0,0)", "(2,0,1)", "(1,1,1)"} {
		t.Run(order, func(t *testing.T) {
			fitted, err := (&arimaModel{}).Fit(series(history...), Params{"order": order})
			require.NoError(t, err)
			got, err := fitted.Predict(5)
			require.NoError(t, err)
			require.Len(t, got, 5)
			assertNearHistory(t, history, got)
		})
	}

	t.Run("coefficients do not depend on scale", func(t *testing.T) {
		scaled := make([]float64, len(history))
		for i, v := range history {
			scaled[i] = v / 100
		}
		small, err := (&arimaModel{}).Fit(series(scaled...), Params{"order": "(1,0,0)"})
		require.NoError(t, err)
		large, err := (&arimaModel{}).Fit(series(history...), Params{"order": "(1,0,0)"})
		require.NoError(t, err)

		ar := large.(*fittedARIMA).ar[0]
		assert.InDelta(t, small.(*fittedARIMA).ar[0], ar, 1e-3)
		assert.Greater(t, ar, 0.3)
		assert.Less(t, ar, 0.9)
	})
}

func TestParseOrder(t *testing.T) {
	o, err := parseOrder(" (2, 1, 0) ")
	require.NoError(t, err)
	assert.Equal(t, arimaOrder{P: 2, D: 1, Q: 0}, o)

	o, err = parseOrder("1,0,1")
	require.NoError(t, err)
	assert.Equal(t, "(1,0,1)", o.String())
}

func TestMovingAverage_InSample(t *testing.T) {
	fitted, err := (&movingAverageModel{}).Fit(series(1, 2, 3, 4, 5), Params{"window": float64(3)})
	require.NoError(t, err)
	got, err := fitted.Predict(10)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, []float64{2, 3, 4}, got[2:])

	_, err = (&movingAverageModel{}).Fit(series(1, 2), Params{"window": float64(3)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))
	_, err = (&movingAverageModel{}).Fit(series(1, 2), Params{"window": float64(0)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
}

func TestHoltWinters(t *testing.T) {
	tbl := seasonalTable(48)
	col, _ := tbl.Column("sales")

	fitted, err := (&holtWintersModel{}).Fit(series(col.Floats...), Params{})
	require.NoError(t, err)
	got, err := fitted.Predict(12)
	require.NoError(t, err)
	require.Len(t, got, 12)
	// One full cycle ahead should sit near the trend line.
	for i, v := range got {
		want := 100 + 0.5*float64(48+i) + 10*math.Sin(2*math.Pi*float64(48+i)/12)
		assert.InDelta(t, want, v, 6, "step %d", i+1)
	}

	_, err = (&holtWintersModel{}).Fit(series(col.Floats[:20]...), Params{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))

	_, err = (&holtWintersModel{}).Fit(series(col.Floats[:20]...), Params{"seasonal": "none", "trend": "add"})
	assert.NoError(t, err)

	_, err = (&holtWintersModel{}).Fit(series(-1, 2, 3, 4), Params{"seasonal": "none", "trend": "mul"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeModelFitFailure))
}

func TestHoltWinters_ComponentSpellings(t *testing.T) {
	col, _ := seasonalTable(48).Column("sales")

	tests := []struct {
		trend, seasonal string
		wantErr         bool
	}{
		{trend: "additive", seasonal: "multiplicative"},
		{trend: "Multiplicative", seasonal: "ADDITIVE"},
		{trend: "add", seasonal: "none"},
		{trend: "none", seasonal: "mul"},
		{trend: "damped", seasonal: "add", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.trend+"/"+tt.seasonal, func(t *testing.T) {
			fitted, err := (&holtWintersModel{}).Fit(series(col.Floats...), Params{"trend": tt.trend, "seasonal": tt.seasonal})
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter), "got %v", err)
				return
			}
			require.NoError(t, err)
			got, err := fitted.Predict(3)
			require.NoError(t, err)
			assertNearHistory(t, col.Floats, got)
		})
	}
}

func TestProphet_NeedsDates(t *testing.T) {
	_, err := (&prophetModel{}).Fit(series(1, 2, 3), Params{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingDateColumn))
}

func TestProphet_UnparseableDates(t *testing.T) {
	s := Series{
		Name:      "sales",
		Values:    []float64{1, 2, 3},
		Dates:     make([]time.Time, 3),
		DateValid: []bool{false, false, false},
	}
	_, err := (&prophetModel{}).Fit(s, Params{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingDateColumn), "got %v", err)
}

func TestProphet_LinearTrend(t *testing.T) {
	n := 10
	s := Series{Name: "sales", Values: make([]float64, n), Dates: make([]time.Time, n), DateValid: make([]bool, n)}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Values[i] = 5 + 3*float64(i)
		s.Dates[i] = start.AddDate(0, 0, i)
		s.DateValid[i] = true
	}
	fitted, err := (&prophetModel{}).Fit(s, Params{})
	require.NoError(t, err)
	got, err := fitted.Predict(2)
	require.NoError(t, err)
	assert.InDelta(t, 35, got[0], 1e-3)
	assert.InDelta(t, 38, got[1], 1e-3)
}

func TestRandomForest_Deterministic(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	model := randomForestModel()

	a, err := model.Fit(series(values...), Params{"n_estimators": float64(25)})
	require.NoError(t, err)
	b, err := model.Fit(series(values...), Params{"n_estimators": float64(25)})
	require.NoError(t, err)

	pa, _ := a.Predict(4)
	pb, _ := b.Predict(4)
	assert.Equal(t, pa, pb)
	for _, v := range pa {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 9.0)
	}
}

func TestSVR(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	fitted, err := svrModel().Fit(series(values...), Params{"kernel": "linear", "C": float64(100)})
	require.NoError(t, err)
	got, err := fitted.Predict(2)
	require.NoError(t, err)
	assert.InDelta(t, 9, got[0], 0.5)

	_, err = svrModel().Fit(series(values...), Params{"kernel": "poly"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
}

func TestSVR_RealisticScale(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 5000 + float64(i%3)*10
	}
	trending := revenueSeries(30, 12000, 0.5, 300)
	for i := range trending {
		trending[i] += 50 * float64(i)
	}

	for _, kernel := range []string{KernelRBF, KernelLinear} {
		for name, history := range map[string][]float64{"flat": flat, "trending": trending} {
			t.Run(kernel+"/"+name, func(t *testing.T) {
				fitted, err := svrModel().Fit(series(history...), Params{"kernel": kernel})
				require.NoError(t, err)
				got, err := fitted.Predict(3)
				require.NoError(t, err)
				assertNearHistory(t, history, got)
			})
		}
	}
}

func TestLSTM(t *testing.T) {
	_, err := (&lstmModel{}).Fit(series(1, 2, 3), Params{"sequence_length": float64(3)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))

	col, _ := seasonalTable(30).Column("sales")
	params := Params{"epochs": float64(2)}
	a, err := (&lstmModel{}).Fit(series(col.Floats...), params)
	require.NoError(t, err)
	b, err := (&lstmModel{}).Fit(series(col.Floats...), params)
	require.NoError(t, err)

	pa, _ := a.Predict(5)
	pb, _ := b.Predict(5)
	assert.Len(t, pa, 5)
	assert.Equal(t, pa, pb, "fixed seed gives repeatable forecasts")
}

func TestModelParams_UpperBounds(t *testing.T) {
	values := seasonalTable(12)
	col, _ := values.Column("sales")

	tests := []struct {
		name   string
		model  Model
		params Params
	}{
		{"too many trees", randomForestModel(), Params{"n_estimators": float64(2e6)}},
		{"tree too deep", randomForestModel(), Params{"max_depth": float64(1000)}},
		{"negative depth", randomForestModel(), Params{"max_depth": float64(-1)}},
		{"too many epochs", &lstmModel{}, Params{"epochs": float64(20000)}},
		{"window too long", &lstmModel{}, Params{"sequence_length": float64(100000)}},
		{"moving window too long", &movingAverageModel{}, Params{"window": float64(1e6)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, err := tt.model.Fit(series(col.Floats...), tt.params)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter), "got %v", err)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestDispatcher_EveryModelHonoursHorizon(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	d := NewDispatcher(DefaultRegistry(), logger)
	tbl := seasonalTable(40)

	for _, id := range d.registry.ListIDs() {
		t.Run(id, func(t *testing.T) {
			params := Params{}
			if id == ModelLSTM {
				params["epochs"] = float64(1)
			}
			res, err := d.Run(context.Background(), tbl, Request{Model: id, Column: "sales", Horizon: 7, Params: params})
			require.NoError(t, err)
			assert.Equal(t, id, res.Model)
			assert.Equal(t, "sales", res.Column)
			if res.InSample {
				assert.Equal(t, ModelMovingAverage, id)
				assert.Len(t, res.Values, tbl.NumRows())
				return
			}
			assert.Len(t, res.Values, 7)
			for _, v := range res.Values {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
		})
	}
}

func TestDispatcher_Validation(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	d := NewDispatcher(DefaultRegistry(), logger, WithHorizonLimits(10, 30))
	tbl := seasonalTable(20)

	tests := []struct {
		name string
		req  Request
		want apperrors.ErrorType
	}{
		{"unknown model", Request{Model: "xgboost", Column: "sales"}, apperrors.ErrTypeInvalidParameter},
		{"unknown column", Request{Model: ModelLinearRegression, Column: "ghost"}, apperrors.ErrTypeInvalidColumn},
		{"non-numeric column", Request{Model: ModelLinearRegression, Column: "date"}, apperrors.ErrTypeInvalidColumn},
		{"negative horizon", Request{Model: ModelLinearRegression, Column: "sales", Horizon: -1}, apperrors.ErrTypeInvalidParameter},
		{"horizon above limit", Request{Model: ModelLinearRegression, Column: "sales", Horizon: 31}, apperrors.ErrTypeInvalidParameter},
		{"arima on short series", Request{Model: ModelARIMA, Column: "sales", Params: Params{"order": "(5,1,5)"}}, apperrors.ErrTypeInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Run(context.Background(), tbl, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
		})
	}
	assert.True(t, handler.ContainsMessage("forecast failed"))
}

func TestDispatcher_DefaultHorizonAndDates(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(), nil)
	res, err := d.Run(context.Background(), seasonalTable(30), Request{Model: ModelProphet, Column: "sales"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHorizon, res.Horizon)
	require.Len(t, res.Dates, DefaultHorizon)
	assert.Equal(t, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), res.Dates[0])

	out := res.Table()
	assert.Equal(t, []string{"sales"}, out.Names())
	assert.Equal(t, DefaultHorizon, out.NumRows())
}

func TestDispatcher_ProphetWithoutDates(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(), nil)

	tests := []struct {
		name string
		tbl  *table.Table
	}{
		{"no date column", table.MustNew(table.NewNumericColumn("sales", []float64{1, 2, 3, 4}))},
		{"unparseable date column", table.MustNew(
			table.NewTextColumn("date", []string{"x", "y", "z"}, nil),
			table.NewNumericColumn("sales", []float64{1, 2, 3}),
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Run(context.Background(), tt.tbl, Request{Model: ModelProphet, Column: "sales"})
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingDateColumn), "got %v", err)
		})
	}
}
