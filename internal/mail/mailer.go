// Package mail delivers invitation emails. Delivery is best effort:
// callers treat a send failure as a warning, never as a reason to
// roll back the invitation itself.
package mail

import "context"

// Invite carries everything a template needs to render an invitation
// email. Link is the fully assembled signup URL including the token.
type Invite struct {
	To        string
	FirstName string
	Link      string
	ExpiresIn string
}

// Mailer sends invitation emails.
type Mailer interface {
	SendInvite(ctx context.Context, inv Invite) error
}

// Noop discards every email. Used when no provider is configured and
// in tests that don't care about delivery.
type Noop struct{}

func (Noop) SendInvite(ctx context.Context, inv Invite) error { return nil }
