package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Workboard error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrUnknownSubject     ErrorCode = "UNKNOWN_SUBJECT"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrStaleResponse      ErrorCode = "STALE_RESPONSE"      // 409
	ErrMissingCredentials ErrorCode = "MISSING_CREDENTIALS" // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrUpstream           ErrorCode = "UPSTREAM"            // 502
)

// WorkboardError represents a structured error with code, status, and details.
type WorkboardError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *WorkboardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *WorkboardError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *WorkboardError {
	return &WorkboardError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnknownSubject creates a 400 error for a subject outside the column set.
func NewUnknownSubject(subject string) *WorkboardError {
	return &WorkboardError{
		Code:    ErrUnknownSubject,
		Status:  400,
		Message: fmt.Sprintf("unknown subject: %q", subject),
		Details: map[string]any{"subject": subject},
	}
}

// NewNotFound creates a 404 error for when a card cannot be found.
func NewNotFound(id string) *WorkboardError {
	return &WorkboardError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("card not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing backup file.
func NewFileNotFound(path string) *WorkboardError {
	return &WorkboardError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewStaleResponse creates a 409 error for an LLM response that arrived
// after a newer request superseded it.
func NewStaleResponse(generation uint64) *WorkboardError {
	return &WorkboardError{
		Code:    ErrStaleResponse,
		Status:  409,
		Message: "response superseded by a newer request",
		Details: map[string]any{"generation": generation},
	}
}

// NewMissingCredentials creates the fatal error raised when no API key is configured.
func NewMissingCredentials(envVar string) *WorkboardError {
	return &WorkboardError{
		Code:    ErrMissingCredentials,
		Status:  500,
		Message: fmt.Sprintf("%s environment variable is required", envVar),
		Details: map[string]any{"env": envVar},
	}
}

// NewUpstream creates a 502 error for chat-completion transport or HTTP failures.
func NewUpstream(err error) *WorkboardError {
	msg := "upstream request failed"
	if err != nil {
		msg = err.Error()
	}
	return &WorkboardError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *WorkboardError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WorkboardError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a WorkboardError with the given code.
func Is(err error, code ErrorCode) bool {
	var wErr *WorkboardError
	if stderrors.As(err, &wErr) {
		return wErr.Code == code
	}
	return false
}

// As extracts a WorkboardError from err, converting anything else to INTERNAL.
func As(err error) *WorkboardError {
	var wErr *WorkboardError
	if stderrors.As(err, &wErr) {
		return wErr
	}
	return NewInternal(err)
}
