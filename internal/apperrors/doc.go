// Package apperrors defines the error taxonomy shared by the task store,
// the tool dispatch table, the agent loop and the HTTP API.
//
// Every domain failure is an *Error carrying a Kind. The dispatch table turns
// any error into a {"error": msg} tool payload; the HTTP layer uses
// HTTPStatus to pick a status code for the same error.
package apperrors
