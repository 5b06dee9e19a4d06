// Package domainerrors defines the coded error envelope used at service
// boundaries. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here so transport can map codes to
// responses without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and policy decisions.
type Code string

const (
	// CodeInvalidInput marks malformed external input (unparseable request,
	// unknown enum value). Maps to 400.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks well-formed input that fails domain validation
	// (bad tag grammar, over-cardinality arrays). Carries the offending field.
	// Maps to 422.
	CodeValidation Code = "validation"
	// CodeAccessDenied marks an operation the caller's role does not permit.
	// The message stays generic so policy structure is not leaked. Maps to 403.
	CodeAccessDenied Code = "access_denied"
	// CodeNotFound covers both "does not exist" and "exists but unreadable for
	// this role" so restricted records cannot be enumerated. Maps to 404.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state collision (duplicate vocabulary value,
	// concurrent migration). Maps to 409.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks an illegal state transition caught by a
	// model. Services usually re-code it before it reaches transport.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal is the catch-all for infrastructure failures. Maps to 500.
	CodeInternal Code = "internal"
)

// Error is the coded error type. Field is optional and set for validation
// failures so callers can point at the offending input.
type Error struct {
	Code    Code
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewField constructs a validation-style error that names the offending field.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/As for sentinel checks.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected failures never leak as client faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf extracts the offending field from err, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
