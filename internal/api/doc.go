// Package api implements the JSON HTTP API: the agent endpoint with its chat
// history, plain task and folder CRUD, the calendar helpers and the Google
// Calendar consent flow. It also mounts the MCP streamable HTTP endpoint and
// the health checks on the same mux.
//
// Every endpoint except /api/calendar/url and the OAuth callback requires an
// "Authorization: Bearer <jwt>" header issued by the identity provider.
// Errors are always returned as {"error": "<mensaje>"}.
package api
