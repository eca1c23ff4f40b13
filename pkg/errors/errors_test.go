package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"already registered", NewAlreadyRegisteredError("0xabc"), ErrAlreadyRegistered, CodeAlreadyRegistered},
		{"not registered", NewNotRegisteredError("0xabc"), ErrNotRegistered, CodeNotRegistered},
		{"invalid input", NewInvalidInputError("username", "must not be empty", ""), ErrInvalidInput, CodeInvalidInput},
		{"not found", NewNotFoundError("entry", "42"), ErrNotFound, CodeNotFound},
		{"unauthorized", NewUnauthorizedError("bad signature"), ErrUnauthorized, CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false, want true", tt.err)
			}
			var ce Error
			if !errors.As(tt.err, &ce) {
				t.Fatalf("errors.As failed for %v", tt.err)
			}
			if ce.Code() != tt.code {
				t.Errorf("code = %s, want %s", ce.Code(), tt.code)
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := NewNotFoundError("entry", "7")
	wrapped := Wrap(inner, "lookup failed")

	var ce Error
	if !errors.As(wrapped, &ce) {
		t.Fatal("wrapped error does not implement Error")
	}
	if ce.Code() != CodeNotFound {
		t.Errorf("wrapped code = %s, want %s", ce.Code(), CodeNotFound)
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should still match ErrNotFound")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{NewAlreadyRegisteredError("0xabc"), http.StatusConflict},
		{NewNotRegisteredError("0xabc"), http.StatusForbidden},
		{NewInvalidInputError("category", "must not be empty", ""), http.StatusBadRequest},
		{NewNotFoundError("entry", "0"), http.StatusNotFound},
		{NewUnauthorizedError(""), http.StatusUnauthorized},
		{NewDatabaseError("insert", errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.status {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestToHTTPErrorHidesInternalDetail(t *testing.T) {
	he := ToHTTPError(NewDatabaseError("insert entry", errors.New("constraint violated on table entries")))
	if he.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", he.Status)
	}
	if strings.Contains(he.Message, "entries") {
		t.Errorf("internal detail leaked: %q", he.Message)
	}
}

func TestFromCodeReconstructsTypedErrors(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{CodeInvalidInput, ErrInvalidInput},
		{CodeNotFound, ErrNotFound},
		{CodeAlreadyRegistered, ErrAlreadyRegistered},
		{CodeNotRegistered, ErrNotRegistered},
		{CodeUnauthorized, ErrUnauthorized},
	}
	for _, tt := range tests {
		err := FromCode(tt.code, "from the wire")
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("FromCode(%s) does not match its sentinel", tt.code)
		}
		var ce Error
		if !errors.As(err, &ce) || ce.Code() != tt.code {
			t.Errorf("FromCode(%s) lost its code", tt.code)
		}
	}

	// Unknown codes come back as a plain coded error.
	var ce Error
	if err := FromCode("SOMETHING_ELSE", "m"); !errors.As(err, &ce) || ce.Code() != "SOMETHING_ELSE" {
		t.Errorf("unknown code handling broken: %v", err)
	}
}

func TestStackTraceCaptured(t *testing.T) {
	err := NewNotFoundError("entry", "1")
	if len(err.Stack()) == 0 {
		t.Error("expected a captured stack")
	}
	if err.StackTrace() == "" {
		t.Error("expected a formatted stack trace")
	}
}
