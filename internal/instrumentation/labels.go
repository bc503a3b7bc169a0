package instrumentation

import "strings"

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Results of the Google Calendar consent flow and of token refreshes
const (
	OAuthResultSuccess  = "success"
	OAuthResultFailure  = "failure"
	OAuthResultExpired  = "expired"
	OAuthResultCanceled = "canceled"
)

// ServiceCalendar labels Google Calendar API operations
const ServiceCalendar = "calendar"

// Agent run outcomes
const (
	AgentResultCompleted = "completed"
	AgentResultFallback  = "fallback"
	AgentResultError     = "error"
)

// Operation labels for store and Google API metrics.
const (
	OperationList       = "list"
	OperationGet        = "get"
	OperationCreate     = "create"
	OperationUpdate     = "update"
	OperationDelete     = "delete"
	OperationBulkDelete = "bulk_delete"
	OperationSearch     = "search"
	OperationStats      = "stats"
	OperationRefresh    = "refresh"
)

// Status maps an error to a status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// ExtractUserDomain returns the lower-cased domain of an email address, or
// "unknown". Owner ids are UUIDs and never become labels; the domain is the
// coarsest identity that still says something.
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return strings.ToLower(domain)
}
