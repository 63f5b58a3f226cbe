package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fintastic/internal/backend"
	"fintastic/internal/config"
	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/forecast"
	"fintastic/internal/infrastructure"
	customMiddleware "fintastic/internal/middleware"
	"fintastic/internal/operations"
	"fintastic/internal/services"
	"fintastic/internal/session"
	handlers "fintastic/internal/transport/http"
	"fintastic/pkg/contracts"
)

// startupCheckTimeout bounds the readiness probe logged at startup.
const startupCheckTimeout = 5 * time.Second

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Backend  backend.Backend
	Sessions session.Store
	Services *ServiceContainer

	ErrorHandler *apperrors.ErrorHandler
	Tokens       *customMiddleware.TokenManager

	Router chi.Router
	Server *http.Server
}

// ServiceContainer holds the services behind the HTTP handlers
type ServiceContainer struct {
	Auth      *services.AuthService
	Workspace *services.WorkspaceService
	Health    *services.HealthService
}

// NewApplication loads configuration, sets up logging and builds the
// application from it.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires every component from cfg. Stores opened here are closed by Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Application{
		Config: cfg,
		Logger: logger.With(slog.String("component", "app")),
	}

	if err := a.initializeTelemetry(); err != nil {
		return nil, err
	}
	if err := a.initializeStores(ctx); err != nil {
		a.shutdownTelemetry(ctx)
		return nil, err
	}
	a.initializeServices()
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeTelemetry sets up tracing, metrics and the business instruments
func (a *Application) initializeTelemetry() error {
	tel := a.Config.Telemetry
	if tel.ServiceVersion == "" || tel.ServiceVersion == "dev" {
		tel.ServiceVersion = contracts.Version
	}

	if tel.TracingEnabled || tel.MetricsEnabled {
		providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(tel), a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		a.OTelProviders = providers
	} else {
		a.OTelProviders = infrastructure.NoopProviders(a.Logger)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics
	return nil
}

// initializeStores opens the account backend and the session store
func (a *Application) initializeStores(ctx context.Context) error {
	switch strings.ToLower(a.Config.Backend.Driver) {
	case "postgres":
		pg, err := backend.NewPostgres(ctx, a.Config.Backend, a.Logger, a.Metrics)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return fmt.Errorf("failed to migrate postgres schema: %w", err)
		}
		a.Backend = pg
	default:
		a.Backend = backend.NewMemory(a.Logger)
	}

	switch strings.ToLower(a.Config.Session.Store) {
	case "redis":
		store, err := session.NewRedisStore(ctx, a.Config.Session, a.Logger)
		if err != nil {
			a.Backend.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Sessions = store
	default:
		a.Sessions = session.NewMemoryStore(a.Config.Session.TTL, a.Logger)
	}

	a.Logger.Info("Stores initialized",
		slog.String("backend", a.Config.Backend.Driver),
		slog.String("sessions", a.Config.Session.Store))
	return nil
}

// initializeServices creates the services and their shared helpers
func (a *Application) initializeServices() {
	a.ErrorHandler = apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	a.Tokens = customMiddleware.NewTokenManager(a.Config.Security.JWTSecret, a.Config.Security.TokenTTL)

	loader := dataprocessing.NewLoader(a.Logger, a.Metrics)
	pipeline := operations.NewPipeline(operations.DefaultRegistry(), a.Logger, a.Metrics)
	dispatcher := forecast.NewDispatcher(forecast.DefaultRegistry(), a.Logger,
		forecast.WithHorizonLimits(a.Config.Forecast.DefaultHorizon, a.Config.Forecast.MaxHorizon),
		forecast.WithMetrics(a.Metrics))

	a.Services = &ServiceContainer{
		Auth:      services.NewAuthService(a.Backend, a.Sessions, a.Tokens, a.Config.Auth, a.Metrics, a.Logger),
		Workspace: services.NewWorkspaceService(a.Sessions, a.Backend, loader, pipeline, dispatcher, a.Logger),
		Health: services.NewHealthService(contracts.Version, a.Logger).
			AddCheck("backend", a.Backend).
			AddCheck("sessions", a.Sessions),
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → Logger → Recoverer → OTel → headers → CORS → rate limit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.Config.Security, a.Logger))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(a.Config.Security.RateLimit, a.Logger, a.ErrorHandler).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	requireAuth := customMiddleware.RequireAuth(a.Tokens, a.Logger, a.ErrorHandler)
	audit := customMiddleware.AuditLog(a.Logger)
	authenticated := func(next http.Handler) http.Handler {
		return requireAuth(audit(next))
	}

	validator := customMiddleware.NewValidator(a.Logger)
	workspace := a.Services.Workspace

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.MaxBodySize(a.Config.Upload.MaxBytes))
		r.NotFound(a.ErrorHandler.NotFound)
		r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

			r.Mount("/health", handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes())
			r.Mount("/auth", handlers.NewAuthHandler(a.Services.Auth, validator, a.ErrorHandler, a.Logger).Routes(authenticated))
			r.Mount("/templates", handlers.NewTemplateHandler(a.ErrorHandler, a.Logger).Routes())
			r.Mount("/session", handlers.NewSessionHandler(workspace, validator, a.ErrorHandler, a.Logger).Routes(authenticated))
			r.Mount("/data", handlers.NewDataHandler(workspace, a.ErrorHandler, a.Logger).Routes(authenticated))
			r.Mount("/transforms", handlers.NewTransformHandler(workspace, validator, a.ErrorHandler, a.Logger).Routes(authenticated))
		})

		// Model fitting gets its own, longer budget
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ForecastTimeout))
			r.Mount("/forecasts", handlers.NewForecastHandler(workspace, validator, a.ErrorHandler, a.Logger).Routes(authenticated))
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", contracts.GetFullVersionString()),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.performStartupHealthCheck(ctx)

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// performStartupHealthCheck logs unreachable dependencies without failing startup
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	status := a.Services.Health.ReadinessCheck(checkCtx)
	if status.Status == "ready" {
		return
	}
	for name, svc := range status.Services {
		if svc.Status != "ready" {
			a.Logger.WarnContext(ctx, "Startup health check warning",
				slog.String("dependency", name),
				slog.String("message", svc.Message))
		}
	}
}

// Stop gracefully stops the server and releases every store
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Close(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Close releases stores and flushes telemetry. It does not touch the server.
func (a *Application) Close(ctx context.Context) {
	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing session store", slog.String("error", err.Error()))
		}
	}
	if a.Backend != nil {
		a.Backend.Close()
	}
	a.shutdownTelemetry(ctx)
}

func (a *Application) shutdownTelemetry(ctx context.Context) {
	if a.OTelProviders == nil {
		return
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
