// Package resources provides MCP resources for exposing per-user data.
// Resources are read-only data sources that MCP clients can fetch: the
// caller's profile with a task summary, their folders and their upcoming
// tasks. The owner always comes from the request context.
package resources
