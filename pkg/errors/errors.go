package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrNotFound is returned when an entry or user record is not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered is returned when an address attempts to register twice.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrNotRegistered is returned when an unregistered address submits an entry.
	ErrNotRegistered = errors.New("not registered")

	// ErrInvalidInput is returned when request input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when signature verification fails or is missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

// captureStack captures the current stack trace.
func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// InvalidInputError represents an input validation error.
type InvalidInputError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(field, message string, value interface{}) *InvalidInputError {
	return &InvalidInputError{
		BaseError: &BaseError{
			code:    CodeInvalidInput,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("invalid input: %s", e.message)
}

// Is reports whether the target matches the ErrInvalidInput sentinel.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError represents a missing entry or user record.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			code:    CodeNotFound,
			message: fmt.Sprintf("%s not found", resource),
			stack:   captureStack(1),
		},
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is reports whether the target matches the ErrNotFound sentinel.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyRegisteredError represents a duplicate registration attempt.
type AlreadyRegisteredError struct {
	*BaseError
	Address string
}

// NewAlreadyRegisteredError creates a new already registered error.
func NewAlreadyRegisteredError(address string) *AlreadyRegisteredError {
	return &AlreadyRegisteredError{
		BaseError: &BaseError{
			code:    CodeAlreadyRegistered,
			message: fmt.Sprintf("address %s is already registered", address),
			stack:   captureStack(1),
		},
		Address: address,
	}
}

// Is reports whether the target matches the ErrAlreadyRegistered sentinel.
func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// NotRegisteredError represents a submission by an unregistered address.
type NotRegisteredError struct {
	*BaseError
	Address string
}

// NewNotRegisteredError creates a new not registered error.
func NewNotRegisteredError(address string) *NotRegisteredError {
	return &NotRegisteredError{
		BaseError: &BaseError{
			code:    CodeNotRegistered,
			message: fmt.Sprintf("address %s is not registered", address),
			stack:   captureStack(1),
		},
		Address: address,
	}
}

// Is reports whether the target matches the ErrNotRegistered sentinel.
func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// UnauthorizedError represents a failed proof of address control.
type UnauthorizedError struct {
	*BaseError
	Realm string
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *UnauthorizedError {
	if message == "" {
		message = "authentication required"
	}
	return &UnauthorizedError{
		BaseError: &BaseError{
			code:    CodeUnauthorized,
			message: message,
			stack:   captureStack(1),
		},
	}
}

// WithRealm sets the authentication realm.
func (e *UnauthorizedError) WithRealm(realm string) *UnauthorizedError {
	e.Realm = realm
	return e
}

// Is reports whether the target matches the ErrUnauthorized sentinel.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
	Operation string
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
	}
}

// WithOperation sets the operation context.
func (e *InternalError) WithOperation(op string) *InternalError {
	e.Operation = op
	return e
}

// DatabaseError represents a failed database operation.
type DatabaseError struct {
	*BaseError
	Operation string
}

// NewDatabaseError creates a new database error.
func NewDatabaseError(operation string, cause error) *DatabaseError {
	return &DatabaseError{
		BaseError: &BaseError{
			code:    CodeDatabaseError,
			message: fmt.Sprintf("database operation failed: %s", operation),
			cause:   cause,
			stack:   captureStack(1),
		},
		Operation: operation,
	}
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already our error type, wrap it
	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}
