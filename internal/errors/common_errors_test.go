package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMatching(t *testing.T) {
	err := fmt.Errorf("apply op: %w", NewInvalidColumnError("revenue", "not numeric"))

	assert.True(t, errors.Is(err, &AppError{Type: ErrTypeInvalidColumn}))
	assert.False(t, errors.Is(err, &AppError{Type: ErrTypeDuplicateColumn}))
	assert.True(t, IsType(err, ErrTypeInvalidColumn))
	assert.Equal(t, ErrTypeInvalidColumn, TypeOf(err))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestAppErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendUnavailableError("insert rows", cause)

	assert.Contains(t, err.Error(), "BACKEND_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert rows", err.Context["operation"])
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error hides internals", errors.New("pq: relation does not exist"), "An unexpected error occurred"},
		{"backend failure is generic", NewBackendUnavailableError("fetch", errors.New("dial tcp 10.0.0.1:5432")), "The data service is currently unavailable. Please try again."},
		{"auth failure is generic", NewAuthenticationFailureError("bcrypt mismatch for alice", nil), "Authentication failed"},
		{"domain error passes through", NewMissingRequiredColumnsError([]string{"price", "date"}), "File is missing required columns: price, date"},
		{"insufficient data", NewInsufficientDataError("arima", 2, 13), "arima needs at least 13 usable values, got 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
