// Package app wires the solar pipeline into a runnable application.
//
// # Initialization Flow
//
//  1. Load configuration from .env, environment variables and YAML
//  2. Initialize logging and OpenTelemetry
//  3. Resolve and create the data directories
//  4. Build the pipeline steps, operation manager and services
//  5. Set up HTTP handlers and middleware
//
// New and NewWithConfig stop there, so the CLI commands reuse the same
// container without listening. Run serves until the context is cancelled
// or SIGINT/SIGTERM arrives.
//
// # Middleware Order
//
// RequestID, RealIP, OpenTelemetry, request logging with panic recovery,
// security headers, CORS, gzip compression, rate limiting and finally a
// per-group timeout.
// /metrics is registered before the rate limiter so scrapes are never
// rejected.
//
// # Graceful Shutdown
//
// Stop drains in-flight requests within the shutdown timeout, cancels any
// running operation and flushes the telemetry providers. The package never
// calls os.Exit; errors go back to the caller.
package app
