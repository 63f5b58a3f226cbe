package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/middleware"
	"fintastic/internal/operations"
	api "fintastic/pkg/contracts/api/v1"
)

// TransformHandler lists and applies table operations.
type TransformHandler struct {
	service      WorkspaceServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewTransformHandler creates a new transform handler
func NewTransformHandler(service WorkspaceServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *TransformHandler {
	return &TransformHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "transforms")),
	}
}

// Routes returns the transform routes. Listing is public.
func (h *TransformHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.With(requireAuth).Post("/{id}", h.Apply)
	return r
}

// List handles GET /api/transforms
func (h *TransformHandler) List(w http.ResponseWriter, r *http.Request) {
	ops := h.service.Operations()
	render.JSON(w, r, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

// Apply handles POST /api/transforms/{id}
func (h *TransformHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	var req api.TransformRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	res, err := h.service.Transform(r.Context(), p, id, operations.Params(req.Params))
	if err != nil {
		renderResultError(w, r, h.errorHandler, err)
		return
	}

	render.JSON(w, r, api.TransformResponse{
		ResultResponse: api.ResultResponse{Success: res.Success, Message: res.Message},
		Changed:        res.Changed,
		Rows:           res.Rows,
		Columns:        columnInfo(res.Columns),
		Summary:        summaryStats(res.Summary),
	})
}
