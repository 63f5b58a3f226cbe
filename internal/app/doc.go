// Package app wires the dashboard service together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from FINTASTIC_* variables and the YAML file
//  2. Initialize logging and OpenTelemetry
//  3. Open the account backend (memory or PostgreSQL)
//  4. Open the session store (memory or Redis)
//  5. Create the auth, workspace and health services
//  6. Mount the /api handlers behind the middleware chain
//  7. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, drains in-flight requests within the
// configured shutdown timeout, then closes the session store and backend
// and flushes telemetry. Initialization errors are returned to the caller;
// the package never calls os.Exit.
package app
