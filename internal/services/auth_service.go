package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fintastic/internal/backend"
	"fintastic/internal/config"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/infrastructure"
	"fintastic/internal/middleware"
	"fintastic/internal/session"
)

// AuthService registers users and opens and closes their sessions.
type AuthService struct {
	backend  backend.Backend
	sessions session.Store
	tokens   *middleware.TokenManager
	cfg      config.AuthConfig
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// RegisterResult is returned by Register. Login is set when the account was
// signed in straight away.
type RegisterResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	UserID  string       `json:"user_id"`
	Login   *LoginResult `json:"login,omitempty"`
}

// NewAuthService creates an auth service. metrics may be nil.
func NewAuthService(b backend.Backend, sessions session.Store, tokens *middleware.TokenManager, cfg config.AuthConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		backend:  b,
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Register creates an account. An empty role takes the configured default.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (RegisterResult, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = s.cfg.DefaultRole
	}

	user, err := s.backend.Register(ctx, email, password, role)
	if err != nil {
		s.logger.WarnContext(ctx, "registration failed",
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		return RegisterResult{}, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role))

	res := RegisterResult{
		Success: true,
		Message: "Registration successful. Please log in.",
		UserID:  user.ID,
	}
	if !s.cfg.AutoLoginOnSignup {
		return res, nil
	}

	login, err := s.openSession(ctx, user)
	if err != nil {
		return RegisterResult{}, err
	}
	res.Message = "Registration successful."
	res.Login = &login
	return res, nil
}

// Login authenticates the credentials and opens a fresh session.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.backend.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.WarnContext(ctx, "login failed",
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		return LoginResult{}, err
	}
	return s.openSession(ctx, user)
}

// Logout discards the session and everything held in it.
// Closing a session that already expired succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	infrastructure.RecordSessionChange(ctx, s.metrics, -1)
	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", sessionID))
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user backend.User) (LoginResult, error) {
	sess := session.New(user.ID, user.Email, user.Role)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return LoginResult{}, err
	}

	token, expires, err := s.tokens.Issue(middleware.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sess.ID,
	})
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return LoginResult{}, apperrors.NewAppError(apperrors.ErrTypeAuthenticationFailure, "could not issue token", err)
	}

	infrastructure.RecordSessionChange(ctx, s.metrics, 1)
	s.logger.InfoContext(ctx, "session opened",
		slog.String("user_id", user.ID),
		slog.String("session_id", sess.ID))

	return LoginResult{
		Token:     token,
		ExpiresAt: expires,
		SessionID: sess.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}
