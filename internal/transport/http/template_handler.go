package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fintastic/internal/dataprocessing"
	apierrors "fintastic/internal/errors"
	"fintastic/internal/exporter"
	"fintastic/internal/middleware"
	api "fintastic/pkg/contracts/api/v1"
)

// TemplateHandler serves the upload templates.
type TemplateHandler struct {
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "templates")),
	}
}

// Routes returns the template routes
func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{type}", h.Download)
	return r
}

// List handles GET /api/templates
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates := dataprocessing.Templates()
	out := make([]api.TemplateInfo, len(templates))
	for i, t := range templates {
		out[i] = api.TemplateInfo{
			DataType: string(t.DataType),
			Columns:  t.Columns,
			Filename: t.Filename() + ".csv",
		}
	}
	render.JSON(w, r, map[string]interface{}{
		"templates": out,
		"count":     len(out),
	})
}

// Download handles GET /api/templates/{type}?format=csv|xlsx
func (h *TemplateHandler) Download(w http.ResponseWriter, r *http.Request) {
	dt, err := dataprocessing.ParseDataType(chi.URLParam(r, "type"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if dt == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", "data type is required"))
		return
	}
	format, err := middleware.QueryEnum(r, "format", exportFormats, "csv")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	t := dataprocessing.TemplateFor(dt)
	switch format {
	case "xlsx":
		attachment(w, t.Filename()+".xlsx", contentTypeXLSX)
		err = exporter.WriteXLSX(w, t.Table(), string(dt))
	default:
		attachment(w, t.Filename()+".csv", contentTypeCSV)
		err = exporter.WriteCSV(w, t.Table(), exporter.WriteOptions{})
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "template download failed",
			slog.String("data_type", string(dt)),
			slog.String("error", err.Error()))
	}
}
