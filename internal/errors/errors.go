package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Jot error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrNoteTooLarge   ErrorCode = "NOTE_TOO_LARGE"  // 413
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// JotError represents a structured error with code, status, and details.
type JotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error for internal failures (not exposed to clients)
	cause error
}

// Error implements the error interface.
func (e *JotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *JotError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *JotError {
	return &JotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewEmptyNote creates a 400 error for a note with neither title nor content.
func NewEmptyNote() *JotError {
	return &JotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: "note must have a title or content",
		Details: map[string]any{"reason": "empty"},
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(id int64) *JotError {
	return &JotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %d", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *JotError {
	return &JotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *JotError {
	return &JotError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewNoteTooLarge creates a 413 error when title plus content exceed the size limit.
func NewNoteTooLarge(max, actual int) *JotError {
	return &JotError{
		Code:    ErrNoteTooLarge,
		Status:  413,
		Message: fmt.Sprintf("note exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *JotError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &JotError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if an error (or any error it wraps) is a JotError with the given code.
func Is(err error, code ErrorCode) bool {
	var jErr *JotError
	if stderrors.As(err, &jErr) {
		return jErr.Code == code
	}
	return false
}

// As extracts a JotError from err, wrapping unknown errors as internal.
func As(err error) *JotError {
	var jErr *JotError
	if stderrors.As(err, &jErr) {
		return jErr
	}
	return NewInternal(err)
}
