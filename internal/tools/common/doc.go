// Package common provides helpers shared by tool implementations: resolving
// the caller's task client from the request context and wrapping tool calls
// with tracing, metrics and audit logging.
package common
