package dataprocessing

import (
	"context"
	"io"
	"log/slog"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/infrastructure"
	"fintastic/internal/table"
)

// Loader parses and checks uploads.
type Loader struct {
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewLoader creates a loader. metrics may be nil.
func NewLoader(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:  logger.With(slog.String("component", "upload_loader")),
		metrics: metrics,
	}
}

// Load parses r according to the extension of filename and checks the
// columns required by dt.
func (l *Loader) Load(ctx context.Context, filename string, r io.Reader, dt DataType) (*table.Table, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		l.logger.WarnContext(ctx, "upload rejected",
			slog.String("filename", filename),
			slog.String("reason", "unsupported format"))
		infrastructure.RecordUploadMetrics(ctx, l.metrics, "unknown", 0, err)
		return nil, err
	}

	tbl, err := Parse(r, format)
	if err == nil {
		err = CheckRequiredColumns(tbl, dt)
	}
	if err != nil {
		l.logger.WarnContext(ctx, "upload rejected",
			slog.String("filename", filename),
			slog.String("format", string(format)),
			slog.String("data_type", string(dt)),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		infrastructure.RecordUploadMetrics(ctx, l.metrics, string(format), 0, err)
		return nil, err
	}

	infrastructure.RecordUploadMetrics(ctx, l.metrics, string(format), tbl.NumRows(), nil)
	l.logger.InfoContext(ctx, "upload parsed",
		slog.String("filename", filename),
		slog.String("format", string(format)),
		slog.String("data_type", string(dt)),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("columns", tbl.NumCols()))
	return tbl, nil
}
