package errors

import (
	"errors"
	"net/http"
)

// HTTPError represents an HTTP error response body.
type HTTPError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for an error.
// It maps error codes to appropriate HTTP status codes.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return codeToHTTPStatus(customErr.Code())
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, ErrNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}

// codeToHTTPStatus maps an error code to an HTTP status.
func codeToHTTPStatus(code string) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyRegistered:
		return http.StatusConflict
	case CodeNotRegistered:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts any error into an HTTPError suitable for a JSON response.
func ToHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	status := StatusCode(err)

	var customErr Error
	if errors.As(err, &customErr) {
		msg := customErr.Message()
		// Never leak internal detail to clients.
		if IsServerError(customErr.Code()) {
			msg = "internal error"
		}
		return &HTTPError{
			Status:  status,
			Code:    customErr.Code(),
			Message: msg,
		}
	}

	if status == http.StatusInternalServerError {
		return &HTTPError{Status: status, Code: CodeInternal, Message: "internal error"}
	}
	return &HTTPError{Status: status, Code: statusToCode(status), Message: err.Error()}
}

// FromCode reconstructs a typed error from a wire code and message, so
// callers of the HTTP API get errors that match the same predicates as
// server-side code.
func FromCode(code, message string) error {
	base := &BaseError{code: code, message: message, stack: captureStack(1)}
	switch code {
	case CodeInvalidInput:
		return &InvalidInputError{BaseError: base}
	case CodeNotFound:
		return &NotFoundError{BaseError: base}
	case CodeAlreadyRegistered:
		return &AlreadyRegisteredError{BaseError: base}
	case CodeNotRegistered:
		return &NotRegisteredError{BaseError: base}
	case CodeUnauthorized:
		return &UnauthorizedError{BaseError: base}
	default:
		return base
	}
}

func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidInput
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeAlreadyRegistered
	case http.StatusForbidden:
		return CodeNotRegistered
	case http.StatusUnauthorized:
		return CodeUnauthorized
	default:
		return CodeUnknown
	}
}
