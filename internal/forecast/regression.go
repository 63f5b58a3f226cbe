package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
)

// indexRegressor learns y as a function of the row index.
type indexRegressor interface {
	fit(x, y []float64) error
	predict(x float64) float64
}

// regressionModel adapts an indexRegressor to the Model contract: missing
// values are dropped, the index is reset to 0..n-1 and the forecast is the
// regressor evaluated at n..n+h-1.
type regressionModel struct {
	info     Info
	minPoint int
	build    func(p Params) (indexRegressor, error)
}

func (m *regressionModel) Info() Info {
	return m.info
}

func (m *regressionModel) Fit(s Series, p Params) (Fitted, error) {
	y := s.Present()
	if len(y) < m.minPoint {
		return nil, apperrors.NewInsufficientDataError(m.info.Name, len(y), m.minPoint)
	}
	reg, err := m.build(p)
	if err != nil {
		return nil, err
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	if err := reg.fit(x, y); err != nil {
		return nil, err
	}
	return &fittedRegression{reg: reg, n: len(y)}, nil
}

type fittedRegression struct {
	reg indexRegressor
	n   int
}

func (f *fittedRegression) Predict(horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = f.reg.predict(float64(f.n + i))
	}
	return out, nil
}

func linearRegressionModel() Model {
	return &regressionModel{
		info: Info{
			ID:          ModelLinearRegression,
			Name:        "Linear Regression",
			Description: "Ordinary least squares line through the values against their position",
		},
		minPoint: 2,
		build: func(Params) (indexRegressor, error) {
			return &linearRegressor{}, nil
		},
	}
}

type linearRegressor struct {
	alpha, beta float64
}

func (r *linearRegressor) fit(x, y []float64) error {
	r.alpha, r.beta = stat.LinearRegression(x, y, nil, false)
	return nil
}

func (r *linearRegressor) predict(x float64) float64 {
	return r.alpha + r.beta*x
}

// Upper bounds on fit-cost parameters. Fits do not observe the request
// context, so these cap the work one request can ask for.
const (
	maxEstimators     = 1000
	maxTreeDepth      = 64
	maxEpochs         = 500
	maxSequenceLength = 365
	maxWindow         = 10000
)

// intInRange reads an integer parameter and checks lo <= v <= hi.
func intInRange(p Params, key string, def, lo, hi int) (int, error) {
	v, err := p.Int(key, def)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, apperrors.NewInvalidParameterError(key, fmt.Sprintf("must be between %d and %d, got %d", lo, hi, v))
	}
	return v, nil
}
