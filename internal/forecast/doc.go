// Package forecast implements the forecast dispatcher: a registry of model
// adapters and a Dispatcher that fits one of them to a numeric column and
// returns a fixed-length forecast.
//
// Every adapter follows the same two-step contract:
//
//	fitted, err := model.Fit(series, params)
//	values, err := fitted.Predict(horizon)
//
// Extrapolating models return exactly horizon finite values. The moving
// average model is the exception: it smooths the history and reports an
// in-sample series of the same length as the input.
//
// Registered models:
//
//	arima                  ARIMA(p,d,q) fitted by conditional sum of squares
//	prophet                linear trend plus Fourier seasonality on a date column
//	moving_average         trailing rolling mean of the history
//	exponential_smoothing  Holt-Winters with grid-searched smoothing weights
//	linear_regression      least squares on the row index
//	random_forest          bagged regression trees on the row index
//	svr                    epsilon support vector regression on the row index
//	lstm                   single-layer LSTM over sliding windows
package forecast
