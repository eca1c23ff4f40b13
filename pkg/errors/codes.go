package errors

// Error codes for categorizing errors.
// These codes map to HTTP status codes where applicable.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeUnknown indicates an unknown error occurred.
	CodeUnknown = "UNKNOWN"

	// CodeInvalidInput indicates a write was rejected by input validation
	// (empty username, empty category, or zero-valued hash).
	CodeInvalidInput = "INVALID_INPUT"

	// CodeNotFound indicates a lookup referenced an entry id outside the
	// valid range, or a user record that does not exist.
	CodeNotFound = "NOT_FOUND"

	// CodeAlreadyRegistered indicates a duplicate registration attempt for
	// an address that already holds a registered record.
	CodeAlreadyRegistered = "ALREADY_REGISTERED"

	// CodeNotRegistered indicates a submission by an address lacking a
	// registered record.
	CodeNotRegistered = "NOT_REGISTERED"

	// CodeUnauthorized indicates the caller failed to prove control of the
	// address (bad signature, unknown or expired challenge).
	CodeUnauthorized = "UNAUTHORIZED"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeDatabaseError indicates a database operation failed.
	CodeDatabaseError = "DATABASE_ERROR"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a client-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates a server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryAuth indicates an authentication/authorization error.
	CategoryAuth ErrorCategory = "AUTH_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeInvalidInput, CodeNotFound, CodeAlreadyRegistered:
		return CategoryClient

	case CodeUnauthorized, CodeNotRegistered:
		return CategoryAuth

	default:
		return CategoryServer
	}
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(code string) bool {
	return GetCategory(code) == CategoryClient
}

// IsServerError returns true if the error is a server error (5xx).
func IsServerError(code string) bool {
	return GetCategory(code) == CategoryServer
}
