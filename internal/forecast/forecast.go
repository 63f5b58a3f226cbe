package forecast

import (
	"math"
	"time"

	"fintastic/internal/shared/params"
	"fintastic/internal/table"
)

// Model identifiers
const (
	ModelARIMA                = "arima"
	ModelProphet              = "prophet"
	ModelMovingAverage        = "moving_average"
	ModelExponentialSmoothing = "exponential_smoothing"
	ModelLinearRegression     = "linear_regression"
	ModelRandomForest         = "random_forest"
	ModelSVR                  = "svr"
	ModelLSTM                 = "lstm"
)

// DefaultHorizon is used when a request leaves the horizon unset.
const DefaultHorizon = 10

// Params carries model options.
type Params = params.Params

// Request selects a model and a target column.
type Request struct {
	Model   string `json:"model"`
	Column  string `json:"column"`
	Horizon int    `json:"horizon"`
	Params  Params `json:"params,omitempty"`
}

// Result is a finished forecast.
type Result struct {
	Model   string    `json:"model"`
	Column  string    `json:"column"`
	Horizon int       `json:"horizon"`
	Values  []float64 `json:"-"`
	// Dates holds the forecast dates for models that work on a calendar.
	Dates []time.Time `json:"-"`
	// InSample marks results that smooth the history instead of extending it.
	InSample bool `json:"in_sample"`
}

// Table returns the forecast as a one-column table named after the target.
func (r *Result) Table() *table.Table {
	return table.MustNew(table.NewNumericColumn(r.Column, append([]float64(nil), r.Values...)))
}

// Points returns the values with undefined entries as nil, for JSON.
func (r *Result) Points() []interface{} {
	out := make([]interface{}, len(r.Values))
	for i, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = v
	}
	return out
}

// Series is the input handed to a model.
type Series struct {
	Name string
	// Values holds the target column; NaN marks a missing value.
	Values []float64
	// Dates is aligned with Values and nil when the table has no date column.
	Dates     []time.Time
	DateValid []bool
}

// Present returns the non-missing values in order.
func (s Series) Present() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Info describes a model for listings.
type Info struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params,omitempty"`
	InSample    bool        `json:"in_sample"`
}

// ParamInfo documents one model option.
type ParamInfo struct {
	Name    string      `json:"name"`
	Default interface{} `json:"default"`
	Help    string      `json:"help,omitempty"`
}

// Model is a forecasting adapter.
type Model interface {
	Info() Info
	Fit(s Series, p Params) (Fitted, error)
}

// Fitted is a model trained on one series.
type Fitted interface {
	Predict(horizon int) ([]float64, error)
}
