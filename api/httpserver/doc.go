// Package httpserver provides the reusable HTTP server shell for batching
// subsystem services.
//
// BaseServer wires standard middleware (request id, real ip, recoverer,
// CORS), structured request logging, health endpoints and lifecycle
// management around component-specific routes. Components implement the
// RouteRegistrar interface and are mounted at construction time.
//
// All servers built with BaseServer include:
//
//   - Liveness check (/livez) and readiness check (/readyz)
//   - Drain control for load balancers (/drain, /undrain)
//   - Optional Prometheus-format metrics on a dedicated listener
//   - Optional pprof debugging endpoints
//
// Shutdown is graceful: the server stops accepting connections and waits
// out in-flight requests up to the configured duration.
package httpserver
