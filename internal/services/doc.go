// Package services implements the business logic between the HTTP handlers
// and the domain packages.
//
// # Available Services
//
//   - AuthService: registration, login and logout against the backend
//   - WorkspaceService: the per-session table, transforms and forecasts
//   - HealthService: liveness, readiness and version reporting
//
// Services take a context on every call and return taxonomy errors from
// internal/errors; handlers map them to HTTP responses. Session state is
// always read and written through a session.Store so concurrent requests of
// one user never see a half-applied change.
package services
