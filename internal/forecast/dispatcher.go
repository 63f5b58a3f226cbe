package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/infrastructure"
	"fintastic/internal/table"
)

const tracerName = "fintastic/forecast"

// Dispatcher validates forecast requests and runs them through a model.
type Dispatcher struct {
	registry       *Registry
	logger         *slog.Logger
	metrics        *infrastructure.BusinessMetrics
	tracer         trace.Tracer
	defaultHorizon int
	maxHorizon     int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHorizonLimits sets the horizon used for unset requests and the largest
// horizon accepted.
func WithHorizonLimits(def, limit int) Option {
	return func(d *Dispatcher) {
		if def > 0 {
			d.defaultHorizon = def
		}
		if limit > 0 {
			d.maxHorizon = limit
		}
	}
}

// WithMetrics records forecast counters and durations.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		registry:       registry,
		logger:         logger.With(slog.String("component", "forecast_dispatcher")),
		tracer:         otel.Tracer(tracerName),
		defaultHorizon: DefaultHorizon,
		maxHorizon:     365,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Models lists the registered models.
func (d *Dispatcher) Models() []Info {
	return d.registry.List()
}

// Run fits req.Model to req.Column of tbl and forecasts req.Horizon steps.
// Fitting runs to completion once started.
func (d *Dispatcher) Run(ctx context.Context, tbl *table.Table, req Request) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "forecast.run", trace.WithAttributes(
		attribute.String("forecast.model", req.Model),
		attribute.String("forecast.column", req.Column)))
	defer span.End()

	start := time.Now()
	res, err := d.run(tbl, req)
	duration := time.Since(start)
	infrastructure.RecordForecastMetrics(ctx, d.metrics, req.Model, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		d.logger.WarnContext(ctx, "forecast failed",
			slog.String("model", req.Model),
			slog.String("column", req.Column),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("forecast.horizon", res.Horizon),
		attribute.Int("forecast.values", len(res.Values)))
	d.logger.InfoContext(ctx, "forecast completed",
		slog.String("model", res.Model),
		slog.String("column", res.Column),
		slog.Int("horizon", res.Horizon),
		slog.Bool("in_sample", res.InSample),
		slog.Duration("duration", duration))
	return res, nil
}

func (d *Dispatcher) run(tbl *table.Table, req Request) (*Result, error) {
	id := strings.ToLower(strings.TrimSpace(req.Model))
	model, ok := d.registry.Get(id)
	if !ok {
		return nil, apperrors.NewInvalidParameterError("model", fmt.Sprintf("unknown model %q", req.Model))
	}
	if tbl == nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeInvalidParameter, "no table loaded", nil)
	}

	col, ok := tbl.Column(req.Column)
	if !ok {
		return nil, apperrors.NewInvalidColumnError(req.Column, "column does not exist")
	}
	if col.Kind != table.Numeric {
		return nil, apperrors.NewInvalidColumnError(req.Column, "column is not numeric")
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = d.defaultHorizon
	}
	if horizon < 1 || horizon > d.maxHorizon {
		return nil, apperrors.NewInvalidParameterError("horizon", fmt.Sprintf("must be between 1 and %d", d.maxHorizon))
	}

	params := req.Params
	if params == nil {
		params = Params{}
	}
	series := seriesFrom(tbl, col)

	values, err := fitAndPredict(model, series, params, horizon)
	if err != nil {
		return nil, err
	}

	info := model.Info()
	res := &Result{
		Model:    info.ID,
		Column:   col.Name,
		Horizon:  horizon,
		Values:   values,
		InSample: info.InSample,
	}
	if info.InSample {
		if len(values) != len(series.Values) {
			return nil, apperrors.NewModelFitFailureError(info.ID,
				fmt.Errorf("returned %d values for a series of %d", len(values), len(series.Values)))
		}
		return res, nil
	}

	if len(values) != horizon {
		return nil, apperrors.NewModelFitFailureError(info.ID,
			fmt.Errorf("returned %d values, expected %d", len(values), horizon))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperrors.NewModelFitFailureError(info.ID,
				fmt.Errorf("forecast step %d is not a finite number", i+1))
		}
	}
	if dated, ok := series.lastDate(); ok && info.ID == ModelProphet {
		res.Dates = make([]time.Time, horizon)
		for i := range res.Dates {
			res.Dates[i] = dated.AddDate(0, 0, i+1)
		}
	}
	return res, nil
}

// fitAndPredict runs both adapter steps, turning a panic inside the numerics
// into a ModelFitFailure.
func fitAndPredict(model Model, s Series, p Params, horizon int) (values []float64, err error) {
	id := model.Info().ID
	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = apperrors.NewModelFitFailureError(id, fmt.Errorf("panic: %v", r))
		}
	}()

	fitted, err := model.Fit(s, p)
	if err != nil {
		return nil, wrapFitError(id, err)
	}
	values, err = fitted.Predict(horizon)
	if err != nil {
		return nil, wrapFitError(id, err)
	}
	return values, nil
}

// wrapFitError keeps taxonomy errors and classifies anything else as a fit failure.
func wrapFitError(model string, err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	return apperrors.NewModelFitFailureError(model, err)
}

// seriesFrom builds the model input, attaching a date column when one exists:
// a column named "date" first, then the first Date-kind column.
func seriesFrom(tbl *table.Table, col *table.Column) Series {
	s := Series{Name: col.Name, Values: append([]float64(nil), col.Floats...)}

	var dateCol *table.Column
	if c, ok := tbl.Column("date"); ok && (c.Kind == table.Date || c.Kind == table.Text) {
		dateCol = c
	} else if dates := tbl.ColumnsOfKind(table.Date); len(dates) > 0 {
		dateCol = dates[0]
	}
	if dateCol == nil {
		return s
	}

	n := dateCol.Len()
	s.Dates = make([]time.Time, n)
	s.DateValid = make([]bool, n)
	for i := 0; i < n; i++ {
		if dateCol.IsMissing(i) {
			continue
		}
		if dateCol.Kind == table.Date {
			s.Dates[i], s.DateValid[i] = dateCol.Times[i], true
			continue
		}
		s.Dates[i], s.DateValid[i] = table.ParseDate(dateCol.Strings[i])
	}
	return s
}

// lastDate returns the latest valid date paired with a present value.
func (s Series) lastDate() (time.Time, bool) {
	var last time.Time
	found := false
	for i := range s.Dates {
		if !s.DateValid[i] || math.IsNaN(s.Values[i]) {
			continue
		}
		if !found || s.Dates[i].After(last) {
			last, found = s.Dates[i], true
		}
	}
	return last, found
}
