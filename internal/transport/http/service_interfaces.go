package http

import (
	"context"
	"io"

	"fintastic/internal/forecast"
	"fintastic/internal/middleware"
	"fintastic/internal/operations"
	"fintastic/internal/services"
	"fintastic/internal/session"
	"fintastic/internal/table"
)

// AuthServiceInterface defines the account operations used by AuthHandler.
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, role string) (services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// WorkspaceServiceInterface defines the session workspace operations.
type WorkspaceServiceInterface interface {
	Operations() []*operations.Operation
	Models() []forecast.Info
	State(ctx context.Context, p middleware.Principal) (session.State, error)
	SelectDataType(ctx context.Context, p middleware.Principal, dataType string) (session.State, error)
	SetPage(ctx context.Context, p middleware.Principal, page string) (session.State, error)
	Upload(ctx context.Context, p middleware.Principal, filename string, r io.Reader) (services.UploadResult, error)
	Fetch(ctx context.Context, p middleware.Principal) (session.State, error)
	Table(ctx context.Context, p middleware.Principal) (*table.Table, error)
	Preview(ctx context.Context, p middleware.Principal, limit int) (*table.Table, int, error)
	Transform(ctx context.Context, p middleware.Principal, id string, params operations.Params) (services.TransformResult, error)
	Forecast(ctx context.Context, p middleware.Principal, req forecast.Request) (*forecast.Result, error)
	LastForecast(ctx context.Context, p middleware.Principal) (*forecast.Result, error)
}
