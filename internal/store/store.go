// Package store defines the persistence interface for the invitation
// subsystem and the sentinel errors its drivers report.
package store

import (
	"context"
	"time"

	"github.com/refhq/refhq-server/internal/domain"
)

// Store is the persistence boundary consumed by the services.
// Two drivers implement it: sqlite (default, also used by tests) and
// postgres.
type Store interface {
	InvitationStore
	UserStore

	// Close releases the underlying database handle.
	Close() error
}

// InvitationStore persists invitations.
type InvitationStore interface {
	// CreateInvitation inserts a new invitation.
	// Returns ErrEmailExists, ErrTokenExists, or ErrInviterNotFound on the
	// corresponding constraint violations.
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error

	// GetInvitation retrieves an invitation by ID, excluding revoked records.
	GetInvitation(ctx context.Context, id string) (*domain.Invitation, error)

	// GetInvitationByToken retrieves an invitation by its token, excluding
	// revoked records.
	GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error)

	// ConsumeInvitation atomically consumes a token and creates the invited
	// user's account in one transaction. It sets used_at and used_by on the
	// row matching token only if the row is still unused and not revoked,
	// then inserts user; both commit together or neither does. It reports
	// how many invitation rows changed: zero means the token was already
	// consumed (or gone) and callers must treat that as a lost race, never
	// as success. A failed insert (ErrUserEmailExists) rolls the claim back
	// so the invitation stays pending.
	ConsumeInvitation(ctx context.Context, tok string, user *domain.User, usedAt time.Time) (int64, error)

	// ListInvitations returns all non-revoked invitations, newest first.
	ListInvitations(ctx context.Context) ([]*domain.Invitation, error)

	// ListInvitationsByInviter returns all non-revoked invitations created
	// by one admin, newest first.
	ListInvitationsByInviter(ctx context.Context, inviterID string) ([]*domain.Invitation, error)

	// DeleteInvitation revokes an invitation (soft delete). Idempotent.
	DeleteInvitation(ctx context.Context, id string) error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrUserEmailExists if the
	// email is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
