// Package shared holds helpers used across fintastic packages that belong to no
// single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// structured log output and small table fixtures shared by the operation,
// forecast and HTTP tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewWorkspaceService(..., logger)
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "operation applied")
package shared
