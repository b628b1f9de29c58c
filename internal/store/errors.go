package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same storage error, so a sentinel
// still matches after WithCause wraps it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors. Drivers translate their constraint violations into these
// so the service layer never sees raw database error codes.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	// ErrEmailExists is the unique-email constraint violation
	// (invitations_email_unique).
	ErrEmailExists = &Error{
		Code:    http.StatusConflict,
		Message: "an invitation for this email already exists",
	}

	// ErrTokenExists is the unique-token constraint violation
	// (invitations_token_unique). With 256-bit tokens this is effectively
	// unreachable, but the constraint is the hard guard.
	ErrTokenExists = &Error{
		Code:    http.StatusConflict,
		Message: "invitation token collision",
	}

	// ErrInviterNotFound is the invited_by foreign-key violation
	// (invitations_invited_by_fkey): the inviting actor does not exist.
	ErrInviterNotFound = &Error{
		Code:    http.StatusBadRequest,
		Message: "inviting user does not exist",
	}

	// ErrUserEmailExists is the unique constraint on users.email.
	ErrUserEmailExists = &Error{
		Code:    http.StatusConflict,
		Message: "a user with this email already exists",
	}
)
