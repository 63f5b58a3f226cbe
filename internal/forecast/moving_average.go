package forecast

import (
	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// movingAverageModel smooths the history with a trailing mean. It does not
// extrapolate: the result has one value per input row, the first window-1 of
// them undefined.
type movingAverageModel struct{}

func (m *movingAverageModel) Info() Info {
	return Info{
		ID:          ModelMovingAverage,
		Name:        "Moving Average",
		Description: "Trailing rolling mean of the history, reported in-sample",
		Params:      []ParamInfo{{Name: "window", Default: 3, Help: "values per mean"}},
		InSample:    true,
	}
}

func (m *movingAverageModel) Fit(s Series, p Params) (Fitted, error) {
	window, err := intInRange(p, "window", 3, 1, maxWindow)
	if err != nil {
		return nil, err
	}
	if present := len(s.Present()); present < window {
		return nil, apperrors.NewInsufficientDataError("Moving Average", present, window)
	}
	return &fittedMovingAverage{smoothed: table.RollingMean(s.Values, window)}, nil
}

type fittedMovingAverage struct {
	smoothed []float64
}

// Predict ignores the horizon.
func (f *fittedMovingAverage) Predict(int) ([]float64, error) {
	return append([]float64(nil), f.smoothed...), nil
}
