// Package errors defines the typed failure taxonomy of the memory store.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies a memory store failure.
type Code string

const (
	// CodeInvalidArgument indicates an empty or malformed input parameter.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeSessionNotFound indicates the targeted session does not exist.
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	// CodeStoreUnavailable indicates the backend is unreachable or a request failed.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	// CodeTimeout indicates the caller-supplied deadline was exceeded.
	CodeTimeout Code = "TIMEOUT"
	// CodeSchemaInitFailure indicates schema initialization failed at startup.
	CodeSchemaInitFailure Code = "SCHEMA_INIT_FAILURE"
)

// Error is a structured failure carrying a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

// SessionNotFound creates a session not found error.
func SessionNotFound(sessionID string) *Error {
	return &Error{Code: CodeSessionNotFound, Message: fmt.Sprintf("session not found: %s", sessionID)}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: msg, Cause: cause}
}

// Timeout creates a deadline exceeded error.
func Timeout(msg string, cause error) *Error {
	return &Error{Code: CodeTimeout, Message: msg, Cause: cause}
}

// SchemaInitFailure creates a schema initialization error.
func SchemaInitFailure(cause error) *Error {
	return &Error{Code: CodeSchemaInitFailure, Message: "schema initialization failed", Cause: cause}
}

// IsCode reports whether any error in err's chain carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from any error in err's chain, or returns the
// provided default.
func CodeOf(err error, defaultCode Code) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return defaultCode
}
