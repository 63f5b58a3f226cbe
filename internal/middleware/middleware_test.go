package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintastic/internal/config"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/shared/testutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", seen)
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(Recoverer(apperrors.NewErrorHandler(logger, false))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2}, logger, apperrors.NewErrorHandler(logger, false))
	h := rl.Handler(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "limits are per client")
}

func TestCORS(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := CORS(config.SecurityConfig{AllowedOrigins: []string{"http://app.example"}}, logger)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	p := Principal{UserID: "u1", Email: "a@example.com", Role: "admin", SessionID: "s1"}

	token, expires, err := tm.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	got, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = NewTokenManager("other", time.Hour).Parse(token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuthenticationFailure))

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.Parse(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token expired")
}

func TestRequireAuth(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.Issue(Principal{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	var got Principal
	h := RequireAuth(tm, logger, apperrors.NewErrorHandler(logger, false))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = PrincipalFromContext(r.Context())
		}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "s1", got.SessionID)
			}
		})
	}
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	DataType string `json:"data_type" validate:"omitempty,datatype"`
}

func TestValidator_Decode(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(logger)

	var ok loginBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","data_type":"Sales"}`))
	require.NoError(t, v.Decode(req, &ok))

	var bad loginBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","data_type":"weather"}`))
	err := v.Decode(req, &bad)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

	details, _ := json.Marshal(apiErr.Details)
	assert.Contains(t, string(details), "email must be a valid email address")
	assert.Contains(t, string(details), "data_type must be one of")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err = v.Decode(req, &bad)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_JSON", apiErr.ErrorCode)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&format=XLSX&bad=x", nil)

	n, err := QueryInt(req, "limit", 1, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = QueryInt(req, "missing", 1, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(req, "bad", 1, 100, 10)
	assert.Error(t, err)

	f, err := QueryEnum(req, "format", []string{"csv", "xlsx"}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", f)
}
