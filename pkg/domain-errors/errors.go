// Package domainerrors defines coded errors shared by services and transports.
//
// Services return coded errors; transports translate codes into status codes
// and client-facing error identifiers. Stores should return
// pkg/platform/sentinel errors and let services pick a code.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. The string value is what clients see in
// the "error" field of the JSON envelope.
type Code string

const (
	// Client-correctable input problems.
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"

	// Entity lookups.
	CodeNotFound Code = "not_found"
	CodeConflict Code = "conflict"

	// Relying application authentication.
	CodeMissingCredential Code = "missing_credential"
	CodeInvalidCredential Code = "invalid_credential"

	CodeRateLimited Code = "rate_limited"

	// Infrastructure. Retryable by the caller; never a policy outcome.
	CodeTimeout          Code = "store_timeout"
	CodeUnavailable      Code = "store_unavailable"
	CodeAuditWriteFailed Code = "audit_write_failed"

	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to clients unless the
// code is CodeInternal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and client-facing message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost client-facing message in err's chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// IsDomainError reports whether err already carries a code.
func IsDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
