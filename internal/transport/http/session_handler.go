package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/middleware"
	api "fintastic/pkg/contracts/api/v1"
)

// SessionHandler exposes the caller's session selections.
type SessionHandler struct {
	service      WorkspaceServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service WorkspaceServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "session")),
	}
}

// Routes returns the session routes; all of them require a token.
func (h *SessionHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireAuth)
	r.Get("/", h.GetState)
	r.Put("/data-type", h.SetDataType)
	r.Put("/page", h.SetPage)
	return r
}

// GetState handles GET /api/session
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	state, err := h.service.State(r.Context(), p)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// SetDataType handles PUT /api/session/data-type
func (h *SessionHandler) SetDataType(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	var req api.DataTypeRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	state, err := h.service.SelectDataType(r.Context(), p, req.DataType)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// SetPage handles PUT /api/session/page
func (h *SessionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	var req api.PageRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	state, err := h.service.SetPage(r.Context(), p, req.Page)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}
