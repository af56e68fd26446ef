// Package errors provides structured domain errors for shelfmark.
//
// Stores return *Error values carrying a Code and the attempted operation.
// Callers match them with errors.Is against the sentinels, or pull the code
// out with errors.As. At the outer boundary Message flattens the error into
// a human-readable string.
//
//	if errors.Is(err, errors.ErrValidation) {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error kind.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeIO         Code = "IO"
	CodeCorrupt    Code = "CORRUPT"
	CodeInternal   Code = "INTERNAL"
)

// Error is a domain error with a code, the attempted operation, and an
// optional cause.
type Error struct {
	Code    Code
	Op      string
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithOp returns a copy of the error tagged with the attempted operation.
func (e *Error) WithOp(op string) *Error {
	return &Error{Code: e.Code, Op: op, Message: e.Message, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Op: e.Op, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrIO         = &Error{Code: CodeIO, Message: "i/o error"}
	ErrCorrupt    = &Error{Code: CodeCorrupt, Message: "corrupt data"}
	ErrInternal   = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Corrupt creates an error for persisted data that cannot be decoded.
func Corrupt(msg string) *Error {
	return &Error{Code: CodeCorrupt, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// IO wraps a filesystem or database failure, naming the attempted operation
// (open, read, write, flush, ...) and the path or resource involved.
func IO(op, resource string, err error) *Error {
	return &Error{Code: CodeIO, Op: op, Message: resource, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when err carries no domain code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message flattens err into a single user-facing line. Structured identity
// is lost here on purpose; callers that need it should use CodeOf first.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return fmt.Sprintf("%s (%s)", err.Error(), e.Code)
	}
	return err.Error()
}
