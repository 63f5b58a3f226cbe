package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	apperrors "fintastic/internal/errors"
)

// Holt-Winters component forms
const (
	ComponentAdd = "add"
	ComponentMul = "mul"
)

// componentAliases maps accepted spellings to ComponentAdd, ComponentMul or
// "" for none.
var componentAliases = map[string]string{
	"":               "",
	ComponentAdd:     ComponentAdd,
	"additive":       ComponentAdd,
	ComponentMul:     ComponentMul,
	"multiplicative": ComponentMul,
}

// smoothingGrid is searched for each of alpha, beta and gamma.
var smoothingGrid = []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95}

type holtWintersModel struct{}

func (m *holtWintersModel) Info() Info {
	return Info{
		ID:          ModelExponentialSmoothing,
		Name:        "Exponential Smoothing",
		Description: "Holt-Winters level, trend and seasonal smoothing with weights chosen by grid search",
		Params: []ParamInfo{
			{Name: "trend", Default: ComponentAdd, Help: "add (additive), mul (multiplicative) or none"},
			{Name: "seasonal", Default: ComponentAdd, Help: "add (additive), mul (multiplicative) or none"},
			{Name: "seasonal_periods", Default: 12, Help: "1 to 12"},
		},
	}
}

type hwConfig struct {
	trend, seasonal string
	period          int
}

func (m *holtWintersModel) Fit(s Series, p Params) (Fitted, error) {
	var cfg hwConfig
	for key, dst := range map[string]*string{"trend": &cfg.trend, "seasonal": &cfg.seasonal} {
		v, ok := componentAliases[p.Optional(key, ComponentAdd)]
		if !ok {
			return nil, apperrors.NewInvalidParameterError(key,
				fmt.Sprintf("expected add, mul or none, got %q", p.String(key, ComponentAdd)))
		}
		*dst = v
	}
	period, err := p.Int("seasonal_periods", 12)
	if err != nil {
		return nil, err
	}
	if period < 1 || period > 12 {
		return nil, apperrors.NewInvalidParameterError("seasonal_periods", "must be between 1 and 12")
	}
	if cfg.seasonal != "" && period < 2 {
		return nil, apperrors.NewInvalidParameterError("seasonal_periods", "a seasonal component needs at least 2 periods")
	}
	cfg.period = period

	y := s.Present()
	need := 3
	if cfg.seasonal != "" {
		need = 2 * period
	}
	if len(y) < need {
		return nil, apperrors.NewInsufficientDataError("Exponential Smoothing", len(y), need)
	}
	if cfg.trend == ComponentMul || cfg.seasonal == ComponentMul {
		for _, v := range y {
			if v <= 0 {
				return nil, apperrors.NewModelFitFailureError(ModelExponentialSmoothing,
					errors.New("multiplicative components need strictly positive values"))
			}
		}
	}

	var best *hwState
	bestSSE := math.Inf(1)
	betas, gammas := []float64{0}, []float64{0}
	if cfg.trend != "" {
		betas = smoothingGrid
	}
	if cfg.seasonal != "" {
		gammas = smoothingGrid
	}
	for _, a := range smoothingGrid {
		for _, b := range betas {
			for _, g := range gammas {
				st, sse := runHoltWinters(y, cfg, a, b, g)
				if !math.IsNaN(sse) && !math.IsInf(sse, 0) && sse < bestSSE {
					best, bestSSE = st, sse
				}
			}
		}
	}
	if best == nil {
		return nil, apperrors.NewModelFitFailureError(ModelExponentialSmoothing,
			errors.New("no smoothing weights produced a finite fit"))
	}
	return best, nil
}

// hwState is the smoothed state after the last observation.
type hwState struct {
	cfg    hwConfig
	level  float64
	slope  float64
	season []float64
	// next indexes the seasonal term for the first forecast step.
	next int
}

// runHoltWinters filters y with fixed weights and returns the final state and
// the one-step-ahead sum of squared errors.
func runHoltWinters(y []float64, cfg hwConfig, alpha, beta, gamma float64) (*hwState, float64) {
	st := &hwState{cfg: cfg}
	m := cfg.period
	if cfg.seasonal == "" {
		m = 1
	}

	// Initial level is the mean of the first season; initial slope compares
	// the first two seasons, or the first two values without seasonality.
	first := mean(y[:m])
	st.level = first
	switch cfg.trend {
	case ComponentAdd:
		if cfg.seasonal != "" {
			st.slope = (mean(y[m:2*m]) - first) / float64(m)
		} else {
			st.slope = y[1] - y[0]
		}
	case ComponentMul:
		if cfg.seasonal != "" {
			st.slope = math.Pow(mean(y[m:2*m])/first, 1/float64(m))
		} else {
			st.slope = y[1] / y[0]
		}
	}
	st.season = make([]float64, m)
	for i := 0; i < m; i++ {
		switch cfg.seasonal {
		case ComponentAdd:
			st.season[i] = y[i] - first
		case ComponentMul:
			st.season[i] = y[i] / first
		}
	}

	sse := 0.0
	for t, obs := range y {
		s := st.season[t%m]
		base := st.trended(1)
		pred := st.seasoned(base, s)
		e := obs - pred
		sse += e * e

		prevLevel := st.level
		switch cfg.seasonal {
		case ComponentAdd:
			st.level = alpha*(obs-s) + (1-alpha)*base
		case ComponentMul:
			st.level = alpha*(obs/s) + (1-alpha)*base
		default:
			st.level = alpha*obs + (1-alpha)*base
		}
		switch cfg.trend {
		case ComponentAdd:
			st.slope = beta*(st.level-prevLevel) + (1-beta)*st.slope
		case ComponentMul:
			st.slope = beta*(st.level/prevLevel) + (1-beta)*st.slope
		}
		switch cfg.seasonal {
		case ComponentAdd:
			st.season[t%m] = gamma*(obs-base) + (1-gamma)*s
		case ComponentMul:
			st.season[t%m] = gamma*(obs/base) + (1-gamma)*s
		}
	}
	st.next = len(y) % m
	return st, sse
}

// trended projects the level h steps along the trend.
func (st *hwState) trended(h int) float64 {
	switch st.cfg.trend {
	case ComponentAdd:
		return st.level + float64(h)*st.slope
	case ComponentMul:
		return st.level * math.Pow(st.slope, float64(h))
	default:
		return st.level
	}
}

func (st *hwState) seasoned(base, s float64) float64 {
	switch st.cfg.seasonal {
	case ComponentAdd:
		return base + s
	case ComponentMul:
		return base * s
	default:
		return base
	}
}

func (st *hwState) Predict(horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	m := len(st.season)
	for h := 1; h <= horizon; h++ {
		out[h-1] = st.seasoned(st.trended(h), st.season[(st.next+h-1)%m])
	}
	return out, nil
}

func mean(v []float64) float64 {
	return stat.Mean(v, nil)
}
