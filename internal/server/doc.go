// Package server provides the shared server context, the HTTP server wrapper
// with its middleware and JSON helpers, health probes and the dedicated
// metrics server.
//
// # Key Components
//
// ServerContext carries the task store, chat history, logger, metrics and
// audit logger to the HTTP API, the MCP transports and the agent.
//
// HTTPServer serves a handler behind OpenTelemetry HTTP instrumentation and
// shuts down gracefully. Chain, CORS and RateLimit compose middleware.
//
// HealthChecker exposes /healthz, /readyz and /healthz/detailed. Readiness
// fails while the server is shutting down or the database is unreachable.
package server
