package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"fintastic/pkg/contracts"
)

// readinessTimeout bounds each dependency ping.
const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	checks    []namedCheck
	startTime time.Time
	logger    *slog.Logger
}

type namedCheck struct {
	name   string
	pinger Pinger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthService creates a health service reporting version.
func NewHealthService(version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// AddCheck registers a dependency probed by ReadinessCheck.
func (hs *HealthService) AddCheck(name string, p Pinger) *HealthService {
	hs.checks = append(hs.checks, namedCheck{name: name, pinger: p})
	return hs
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck pings every registered dependency. The service is ready
// only when all of them answer.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth, len(hs.checks)),
	}

	for _, c := range hs.checks {
		sh := hs.probe(ctx, c)
		if sh.Status != "ready" {
			status.Status = "not_ready"
		}
		status.Services[c.name] = sh
	}

	return status
}

func (hs *HealthService) probe(ctx context.Context, c namedCheck) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		hs.logger.WarnContext(ctx, "dependency not ready",
			slog.String("dependency", c.name),
			slog.String("error", err.Error()))
		return ServiceHealth{
			Status:  "not_ready",
			Message: c.name + " is unreachable",
			Latency: latency.String(),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Latency: latency.String(),
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":      hs.version,
		"build_time":   contracts.BuildTime,
		"git_commit":   contracts.GitCommit,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}
