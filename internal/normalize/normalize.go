// Package normalize provides utilities for normalizing and sanitizing invitee input.
package normalize

import "strings"

// Payload is the free-text portion of an invitation request before validation.
type Payload struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// Email normalizes an email address: trims surrounding whitespace and
// lowercases. Addresses are compared and stored in this form so the unique
// constraint sees one spelling per mailbox.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace from a free-text name. Interior
// characters are preserved untouched: accents, CJK, apostrophes, and
// hyphens all pass through.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Sanitize normalizes an invitation payload. Pure and idempotent:
// Sanitize(Sanitize(p)) == Sanitize(p).
func Sanitize(p Payload) Payload {
	return Payload{
		FirstName: Name(p.FirstName),
		LastName:  Name(p.LastName),
		Email:     Email(p.Email),
		Role:      strings.TrimSpace(p.Role),
	}
}
