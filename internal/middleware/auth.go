package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "fintastic/internal/errors"
)

// tokenIssuer names the service in issued tokens.
const tokenIssuer = "fintastic"

// JWTClaims represents the JWT token claims.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

const principalKey contextKey = "principal"

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenManager creates a token manager.
func NewTokenManager(secretKey string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue signs a token for p and returns it with its expiry.
func (tm *TokenManager) Issue(p Principal) (string, time.Time, error) {
	now := tm.now()
	expires := now.Add(tm.ttl)
	claims := JWTClaims{
		UserID:    p.UserID,
		Email:     p.Email,
		Role:      p.Role,
		SessionID: p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its principal.
func (tm *TokenManager) Parse(tokenString string) (Principal, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secretKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, apperrors.NewAuthenticationFailureError("Token expired", err)
		}
		return Principal{}, apperrors.NewAuthenticationFailureError("Invalid token", err)
	}
	if !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return Principal{}, apperrors.NewAuthenticationFailureError("Invalid token claims", nil)
	}
	return Principal{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}

// RequireAuth rejects requests without a valid Bearer token and attaches the
// Principal to the request context.
func RequireAuth(tm *TokenManager, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "missing or malformed authorization header",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				errorHandler.HandleError(w, r, apperrors.ErrUnauthorized)
				return
			}

			p, err := tm.Parse(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "token rejected",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				errorHandler.HandleError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
// The scheme is case-insensitive per RFC 6750.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
