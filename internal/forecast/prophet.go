package forecast

import (
	"errors"
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperrors "fintastic/internal/errors"
)

const (
	weeklyPeriod  = 7.0
	yearlyPeriod  = 365.25
	weeklyOrder   = 3
	yearlyOrder   = 10
	prophetRidge  = 1e-6
	hoursPerDay   = 24.0
	prophetMinObs = 2
)

// prophetModel fits an additive model y(t) = trend(t) + seasonality(t) where
// the trend is a single line and the seasonality is a Fourier series. Weekly
// terms are used once the history spans two weeks, yearly terms once it spans
// two years. Forecasts are daily steps after the last observed date.
type prophetModel struct{}

func (m *prophetModel) Info() Info {
	return Info{
		ID:          ModelProphet,
		Name:        "Prophet",
		Description: "Linear trend with weekly and yearly Fourier seasonality on the date column",
		Params: []ParamInfo{
			{Name: "weekly_seasonality", Default: "auto", Help: "auto, true or false"},
			{Name: "yearly_seasonality", Default: "auto", Help: "auto, true or false"},
		},
	}
}

type dated struct {
	t time.Time
	y float64
}

func (m *prophetModel) Fit(s Series, p Params) (Fitted, error) {
	if s.Dates == nil || !slices.Contains(s.DateValid, true) {
		return nil, apperrors.NewMissingDateColumnError()
	}

	var obs []dated
	for i, v := range s.Values {
		if math.IsNaN(v) || !s.DateValid[i] {
			continue
		}
		obs = append(obs, dated{t: s.Dates[i], y: v})
	}
	if len(obs) < prophetMinObs {
		return nil, apperrors.NewInsufficientDataError("Prophet", len(obs), prophetMinObs)
	}
	sort.SliceStable(obs, func(a, b int) bool { return obs[a].t.Before(obs[b].t) })

	origin := obs[0].t
	last := obs[len(obs)-1].t
	span := last.Sub(origin).Hours() / hoursPerDay
	if span <= 0 {
		return nil, apperrors.NewInsufficientDataError("Prophet", 1, prophetMinObs)
	}

	f := &fittedProphet{origin: origin, last: last, span: span}
	f.weekly = seasonalityFlag(p.String("weekly_seasonality", "auto"), span >= 2*weeklyPeriod)
	f.yearly = seasonalityFlag(p.String("yearly_seasonality", "auto"), span >= 2*yearlyPeriod)

	ys := make([]float64, len(obs))
	for i, o := range obs {
		ys[i] = o.y
	}
	f.scale = floats.Norm(ys, math.Inf(1))
	if f.scale == 0 {
		f.scale = 1
	}

	cols := f.width()
	x := mat.NewDense(len(obs), cols, nil)
	y := mat.NewVecDense(len(obs), nil)
	for i, o := range obs {
		x.SetRow(i, f.features(o.t))
		y.SetVec(i, o.y/f.scale)
	}

	// Ridge-regularised normal equations keep short histories solvable.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 0; j < cols; j++ {
		xtx.Set(j, j, xtx.At(j, j)+prophetRidge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var coef mat.VecDense
	if err := coef.SolveVec(&xtx, &xty); err != nil {
		return nil, apperrors.NewModelFitFailureError(ModelProphet, err)
	}
	f.coef = coef.RawVector().Data
	for _, c := range f.coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, apperrors.NewModelFitFailureError(ModelProphet, errors.New("least squares produced non-finite coefficients"))
		}
	}
	return f, nil
}

func seasonalityFlag(v string, auto bool) bool {
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return auto
	}
}

type fittedProphet struct {
	origin, last   time.Time
	span           float64
	weekly, yearly bool
	scale          float64
	coef           []float64
}

func (f *fittedProphet) width() int {
	n := 2
	if f.weekly {
		n += 2 * weeklyOrder
	}
	if f.yearly {
		n += 2 * yearlyOrder
	}
	return n
}

// features returns the design row for t: intercept, scaled time, then sine
// and cosine pairs per seasonality.
func (f *fittedProphet) features(t time.Time) []float64 {
	days := t.Sub(f.origin).Hours() / hoursPerDay
	row := make([]float64, 0, f.width())
	row = append(row, 1, days/f.span)
	if f.weekly {
		row = appendFourier(row, days, weeklyPeriod, weeklyOrder)
	}
	if f.yearly {
		row = appendFourier(row, days, yearlyPeriod, yearlyOrder)
	}
	return row
}

func appendFourier(row []float64, days, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * days / period
		row = append(row, math.Sin(arg), math.Cos(arg))
	}
	return row
}

func (f *fittedProphet) Predict(horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	for h := range out {
		row := f.features(f.last.AddDate(0, 0, h+1))
		out[h] = floats.Dot(row, f.coef) * f.scale
	}
	return out, nil
}
