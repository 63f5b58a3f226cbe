package operations

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/infrastructure"
	"fintastic/internal/table"
)

const tracerName = "fintastic/operations"

// Pipeline applies registered operations to tables.
type Pipeline struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
}

// NewPipeline creates a pipeline over registry. metrics may be nil.
func NewPipeline(registry *Registry, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: registry,
		logger:   logger.With(slog.String("component", "transform_pipeline")),
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

// Registry returns the registry the pipeline dispatches to.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Apply runs operation id on tbl. On failure tbl is untouched and the error
// carries the taxonomy type for the caller to render.
func (p *Pipeline) Apply(ctx context.Context, tbl *table.Table, id string, params Params) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "operations.apply",
		trace.WithAttributes(attribute.String("operation.id", id)))
	defer span.End()

	start := time.Now()
	res, err := p.apply(tbl, id, params)
	duration := time.Since(start)
	infrastructure.RecordTransformMetrics(ctx, p.metrics, id, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.logger.WarnContext(ctx, "operation failed",
			slog.String("operation", id),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Bool("operation.changed", res.Changed),
		attribute.Int("table.rows", res.Table.NumRows()),
		attribute.Int("table.columns", res.Table.NumCols()))
	p.logger.InfoContext(ctx, "operation applied",
		slog.String("operation", id),
		slog.Bool("changed", res.Changed),
		slog.Int("rows", res.Table.NumRows()),
		slog.Int("columns", res.Table.NumCols()),
		slog.Duration("duration", duration))
	return res, nil
}

func (p *Pipeline) apply(tbl *table.Table, id string, params Params) (Result, error) {
	op, err := p.registry.Get(id)
	if err != nil {
		return Result{}, err
	}
	if tbl == nil {
		return Result{}, apperrors.NewAppError(apperrors.ErrTypeInvalidParameter, "no table loaded", nil)
	}
	if params == nil {
		params = Params{}
	}
	return op.Apply(tbl, params)
}
