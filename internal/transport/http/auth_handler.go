package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/middleware"
	"fintastic/internal/services"
	api "fintastic/pkg/contracts/api/v1"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	service      AuthServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "auth")),
	}
}

// Routes returns the auth routes. Logout requires a session token.
func (h *AuthHandler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(requireAuth).Post("/logout", h.Logout)
	return r
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Register(r.Context(), req.Email, req.Password, "")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.RegisterResponse{
		ResultResponse: api.ResultResponse{Success: res.Success, Message: res.Message},
		UserID:         res.UserID,
	}
	if res.Login != nil {
		login := loginResponse(*res.Login)
		resp.Login = &login
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, loginResponse(res))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.errorHandler)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), p.SessionID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ResultResponse{Success: true, Message: "Logged out"})
}

func loginResponse(res services.LoginResult) api.LoginResponse {
	return api.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		SessionID: res.SessionID,
		UserID:    res.UserID,
		Email:     res.Email,
		Role:      res.Role,
	}
}
