package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies failures raised by the pipeline, dispatcher and backend.
type ErrorType string

const (
	ErrTypeUnsupportedFileFormat  ErrorType = "UNSUPPORTED_FILE_FORMAT"
	ErrTypeMissingRequiredColumns ErrorType = "MISSING_REQUIRED_COLUMNS"
	ErrTypeInvalidColumn          ErrorType = "INVALID_COLUMN"
	ErrTypeDuplicateColumn        ErrorType = "DUPLICATE_COLUMN"
	ErrTypeNoDateColumns          ErrorType = "NO_DATE_COLUMNS"
	ErrTypeMissingDateColumn      ErrorType = "MISSING_DATE_COLUMN"
	ErrTypeInsufficientData       ErrorType = "INSUFFICIENT_DATA"
	ErrTypeModelFitFailure        ErrorType = "MODEL_FIT_FAILURE"
	ErrTypeBackendUnavailable     ErrorType = "BACKEND_UNAVAILABLE"
	ErrTypeAuthenticationFailure  ErrorType = "AUTHENTICATION_FAILURE"
	ErrTypeInvalidParameter       ErrorType = "INVALID_PARAMETER"
	ErrTypeNotFound               ErrorType = "NOT_FOUND"
	ErrTypeParsing                ErrorType = "PARSING"
	ErrTypeConflict               ErrorType = "CONFLICT"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type. A bare
// &AppError{Type: X} therefore works as a sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType carried by err, or "" when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// UserMessage returns the message safe to show to an end user. Backend and
// authentication failures never expose their cause.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "An unexpected error occurred"
	}
	switch appErr.Type {
	case ErrTypeBackendUnavailable:
		return "The data service is currently unavailable. Please try again."
	case ErrTypeAuthenticationFailure:
		return "Authentication failed"
	}
	return appErr.Message
}

// Helper functions for the domain taxonomy

// NewUnsupportedFileFormatError rejects an upload by extension.
func NewUnsupportedFileFormatError(filename string) *AppError {
	return NewAppError(ErrTypeUnsupportedFileFormat, "Unsupported file format", nil).
		WithContext("filename", filename)
}

// NewMissingRequiredColumnsError lists the template columns absent from an upload.
func NewMissingRequiredColumnsError(missing []string) *AppError {
	return NewAppError(ErrTypeMissingRequiredColumns,
		fmt.Sprintf("File is missing required columns: %s", strings.Join(missing, ", ")), nil).
		WithContext("missing", missing)
}

// NewInvalidColumnError reports a column that does not exist or has the wrong kind.
func NewInvalidColumnError(column, reason string) *AppError {
	msg := fmt.Sprintf("invalid column %q", column)
	if reason != "" {
		msg = fmt.Sprintf("invalid column %q: %s", column, reason)
	}
	return NewAppError(ErrTypeInvalidColumn, msg, nil).WithContext("column", column)
}

// NewDuplicateColumnError reports a name collision.
func NewDuplicateColumnError(column string) *AppError {
	return NewAppError(ErrTypeDuplicateColumn, fmt.Sprintf("column %q already exists", column), nil).
		WithContext("column", column)
}

// NewNoDateColumnsError is raised when no text or date column can be parsed.
func NewNoDateColumnsError() *AppError {
	return NewAppError(ErrTypeNoDateColumns, "no text or date columns available for date conversion", nil)
}

// NewMissingDateColumnError is raised by models that need a date axis.
func NewMissingDateColumnError() *AppError {
	return NewAppError(ErrTypeMissingDateColumn, "the table has no date column", nil)
}

// NewInsufficientDataError reports a series shorter than a model requires.
func NewInsufficientDataError(model string, have, need int) *AppError {
	return NewAppError(ErrTypeInsufficientData,
		fmt.Sprintf("%s needs at least %d usable values, got %d", model, need, have), nil).
		WithContext("model", model).
		WithContext("have", have).
		WithContext("need", need)
}

// NewModelFitFailureError wraps a numerical failure inside a model.
func NewModelFitFailureError(model string, cause error) *AppError {
	return NewAppError(ErrTypeModelFitFailure, fmt.Sprintf("%s failed to fit the series", model), cause).
		WithContext("model", model)
}

// NewBackendUnavailableError wraps a persistence or identity provider failure.
func NewBackendUnavailableError(operation string, cause error) *AppError {
	return NewAppError(ErrTypeBackendUnavailable, fmt.Sprintf("backend %s failed", operation), cause).
		WithContext("operation", operation)
}

// NewAuthenticationFailureError reports rejected credentials or tokens.
func NewAuthenticationFailureError(message string, cause error) *AppError {
	return NewAppError(ErrTypeAuthenticationFailure, message, cause)
}

// NewInvalidParameterError reports a malformed operation or model parameter.
func NewInvalidParameterError(param, message string) *AppError {
	return NewAppError(ErrTypeInvalidParameter, fmt.Sprintf("invalid %s: %s", param, message), nil).
		WithContext("param", param)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConflictError reports a resource that already exists, such as a registered email.
func NewConflictError(message string) *AppError {
	return NewAppError(ErrTypeConflict, message, nil)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}
