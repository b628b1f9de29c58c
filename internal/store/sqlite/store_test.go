package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/refhq/refhq-server/internal/domain"
)

// newTestStore opens a store backed by a temp-file database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// insertTestUser creates a minimal admin user so invitations have a valid
// inviter to reference.
func insertTestUser(t *testing.T, s *Store, id string) {
	t.Helper()

	now := time.Now()
	user := &domain.User{
		Record: domain.Record{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        id + "@example.com",
		PasswordHash: "$argon2id$test",
		FirstName:    "Test",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
}

// testInvitation builds a pending invitation referencing the given inviter.
func testInvitation(id, token, email, inviter string) *domain.Invitation {
	now := time.Now()
	return &domain.Invitation{
		Record: domain.Record{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Token:     token,
		FirstName: "Alice",
		LastName:  "Nguyen",
		Email:     email,
		Role:      domain.RoleReferee,
		InvitedBy: inviter,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}
