package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/exporter"
	"fintastic/internal/forecast"
	"fintastic/internal/middleware"
	api "fintastic/pkg/contracts/api/v1"
)

// ForecastHandler lists models, runs forecasts and exports the last result.
type ForecastHandler struct {
	service      WorkspaceServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service WorkspaceServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "forecasts")),
	}
}

// Routes returns the forecast routes. Listing models is public.
func (h *ForecastHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/models", h.Models)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.Run)
		r.Get("/export", h.Export)
	})
	return r
}

// Models handles GET /api/forecasts/models
func (h *ForecastHandler) Models(w http.ResponseWriter, r *http.Request) {
	models := h.service.Models()
	render.JSON(w, r, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

// Run handles POST /api/forecasts
func (h *ForecastHandler) Run(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	var req api.ForecastRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Forecast(r.Context(), p, forecast.Request{
		Model:   req.Model,
		Column:  req.Column,
		Horizon: req.Horizon,
		Params:  forecast.Params(req.Params),
	})
	if err != nil {
		renderResultError(w, r, h.errorHandler, err)
		return
	}
	render.JSON(w, r, forecastResponse(res))
}

// Export handles GET /api/forecasts/export?model=name. The model, when
// given, must match the last forecast of the session.
func (h *ForecastHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	res, err := h.service.LastForecast(r.Context(), p)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if model := r.URL.Query().Get("model"); model != "" && model != res.Model {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoForecast)
		return
	}

	attachment(w, exporter.ForecastFilename(res.Model), contentTypeCSV)
	if err := exporter.WriteForecastCSV(w, res); err != nil {
		h.logger.ErrorContext(r.Context(), "forecast export failed",
			slog.String("model", res.Model),
			slog.String("error", err.Error()))
	}
}
