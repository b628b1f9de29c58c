// Package errors provides standardized domain errors with codes for the RefHQ API.
//
// Usage:
//
//	// In services - return typed errors
//	if !actor.CanInvite() {
//	    return errors.Forbidden("only admins can invite users")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrInvitationUsed) {
//	    // token already consumed
//	}
//
//	// Or inspect the code directly
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInvalidActor       Code = "INVALID_ACTOR"
	CodeInvitationUsed     Code = "INVITATION_USED"
	CodeInvitationExpired  Code = "INVITATION_EXPIRED"
	CodeDelivery           Code = "DELIVERY"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeInvitationUsed:
		return http.StatusConflict
	case CodeInvitationExpired:
		return http.StatusGone
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation, CodeInvalidActor:
		return http.StatusBadRequest
	case CodeDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrInvalidActor       = &Error{Code: CodeInvalidActor, Message: "inviter does not exist"}
	ErrInvitationUsed     = &Error{Code: CodeInvitationUsed, Message: "invitation already used"}
	ErrInvitationExpired  = &Error{Code: CodeInvitationExpired, Message: "invitation expired"}
	ErrDelivery           = &Error{Code: CodeDelivery, Message: "delivery failed"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationField creates a validation error naming the offending field.
// The field name is carried in Details for machine consumption.
func ValidationField(field, msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: map[string]string{"field": field}}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// InvalidActor creates an invalid actor error.
func InvalidActor(msg string) *Error {
	return &Error{Code: CodeInvalidActor, Message: msg}
}

// InvitationUsed creates an already-used invitation error.
func InvitationUsed(msg string) *Error {
	return &Error{Code: CodeInvitationUsed, Message: msg}
}

// InvitationExpired creates an expired invitation error.
func InvitationExpired(msg string) *Error {
	return &Error{Code: CodeInvitationExpired, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Delivery creates a delivery error.
func Delivery(msg string) *Error {
	return &Error{Code: CodeDelivery, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
