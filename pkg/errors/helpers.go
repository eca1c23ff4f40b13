package errors

import "errors"

// IsNotFound checks if an error indicates a missing entry or user record.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if an error is an input validation error.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}

	var invalidErr *InvalidInputError
	return errors.As(err, &invalidErr) || errors.Is(err, ErrInvalidInput)
}

// IsAlreadyRegistered checks if an error indicates a duplicate registration.
func IsAlreadyRegistered(err error) bool {
	if err == nil {
		return false
	}

	var dupErr *AlreadyRegisteredError
	return errors.As(err, &dupErr) || errors.Is(err, ErrAlreadyRegistered)
}

// IsNotRegistered checks if an error indicates a missing registration.
func IsNotRegistered(err error) bool {
	if err == nil {
		return false
	}

	var notRegErr *NotRegisteredError
	return errors.As(err, &notRegErr) || errors.Is(err, ErrNotRegistered)
}

// IsUnauthorized checks if an error indicates lack of authentication.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var unauthorizedErr *UnauthorizedError
	return errors.As(err, &unauthorizedErr) || errors.Is(err, ErrUnauthorized)
}
