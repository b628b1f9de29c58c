package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refhq/refhq-server/internal/auth"
	"github.com/refhq/refhq-server/internal/domain"
	domainerrors "github.com/refhq/refhq-server/internal/errors"
	"github.com/refhq/refhq-server/internal/mail"
	"github.com/refhq/refhq-server/internal/store"
	"github.com/refhq/refhq-server/internal/store/sqlite"
	"github.com/refhq/refhq-server/internal/token"
	"github.com/refhq/refhq-server/internal/validation"
)

// fakeMailer records sends and can be told to fail.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []mail.Invite
	failing bool
}

func (f *fakeMailer) SendInvite(ctx context.Context, inv mail.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return fmt.Errorf("provider unavailable")
	}
	f.sent = append(f.sent, inv)
	return nil
}

func (f *fakeMailer) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, inv := range f.sent {
		out = append(out, inv.To)
	}
	return out
}

// setupInvitationService wires a service against a temp sqlite database.
func setupInvitationService(t *testing.T) (*InvitationService, store.Store, *fakeMailer) {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	mailer := &fakeMailer{}
	svc := NewInvitationService(
		st,
		mailer,
		token.NewIssuer(token.DefaultByteLength, token.DefaultTTL),
		validation.New(validation.DefaultPasswordMinLength),
		slog.New(slog.DiscardHandler),
		"https://app.refhq.example",
	)
	return svc, st, mailer
}

// seedAdmin inserts an admin user and returns it as an actor.
func seedAdmin(t *testing.T, st store.Store, id string) domain.Actor {
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
		FirstName:    "Ada",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user.AsActor()
}

func validRequest() CreateInvitationRequest {
	return CreateInvitationRequest{
		FirstName: "  John  ",
		LastName:  "Doe",
		Email:     "  John@Example.com  ",
		Role:      "referee",
	}
}

func TestCreateInvitation(t *testing.T) {
	svc, st, mailer := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "John", resp.FirstName)
	assert.Equal(t, "john@example.com", resp.Email)
	assert.Equal(t, domain.RoleReferee, resp.Role)
	assert.Equal(t, admin.ID, resp.InvitedBy)
	assert.Len(t, resp.Token, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", resp.Token)
	assert.Equal(t, "https://app.refhq.example/complete-signup?token="+resp.Token, resp.Link)
	assert.Empty(t, resp.DeliveryWarning)

	// Expiry lands 7 days out.
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), resp.ExpiresAt, 5*time.Second)

	// Email went to the normalized address with the signup link.
	require.Equal(t, []string{"john@example.com"}, mailer.sentTo())
	assert.Contains(t, mailer.sent[0].Link, "/complete-signup?token=")

	// Persisted and pending.
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, stored.Status())
}

func TestCreateInvitationRequiresAdmin(t *testing.T) {
	svc, st, mailer := setupInvitationService(t)
	ctx := context.Background()
	seedAdmin(t, st, "usr-admin")

	referee := domain.Actor{ID: "usr-ref", Role: domain.RoleReferee}
	_, err := svc.Create(ctx, referee, validRequest())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))
	assert.Empty(t, mailer.sentTo())

	// Admin in the roles set is enough even with a non-admin primary role.
	multiRole := domain.Actor{
		ID:    "usr-admin",
		Role:  domain.RoleReferee,
		Roles: []domain.Role{domain.RoleAdmin},
	}
	_, err = svc.Create(ctx, multiRole, validRequest())
	require.NoError(t, err)
}

func TestCreateInvitationValidation(t *testing.T) {
	svc, st, mailer := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	tests := []struct {
		name   string
		mutate func(*CreateInvitationRequest)
		field  string
	}{
		{"missing email", func(r *CreateInvitationRequest) { r.Email = "   " }, "email"},
		{"missing first name", func(r *CreateInvitationRequest) { r.FirstName = "" }, "first_name"},
		{"missing last name", func(r *CreateInvitationRequest) { r.LastName = "" }, "last_name"},
		{"missing role", func(r *CreateInvitationRequest) { r.Role = "" }, "role"},
		{"malformed email", func(r *CreateInvitationRequest) { r.Email = "not-an-email" }, "email"},
		{"email without tld", func(r *CreateInvitationRequest) { r.Email = "user@example" }, "email"},
		{"unknown role", func(r *CreateInvitationRequest) { r.Role = "moderator" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, admin, req)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
			assert.Equal(t, tt.field, validation.FailedField(err))
		})
	}

	// Nothing reached the mailer or the database.
	assert.Empty(t, mailer.sentTo())
	invs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestCreateInvitationDuplicateEmail(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	_, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	// Same mailbox, different spelling.
	req := validRequest()
	req.Email = "JOHN@example.COM"
	_, err = svc.Create(ctx, admin, req)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))

	invs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, invs, 1)
}

func TestCreateInvitationUnknownInviter(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	seedAdmin(t, st, "usr-admin")

	ghost := domain.Actor{ID: "usr-ghost", Role: domain.RoleAdmin}
	_, err := svc.Create(ctx, ghost, validRequest())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidActor))
}

func TestCreateInvitationEmailFailureIsWarning(t *testing.T) {
	svc, st, mailer := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")
	mailer.failing = true

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.DeliveryWarning)

	// The invitation is live despite the failed send.
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, stored.Status())
}

func TestConsumeInvitation(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	user, err := svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, "john@example.com", user.Email)
	assert.Equal(t, "John", user.FirstName)
	assert.Equal(t, domain.RoleReferee, user.Role)
	assert.Equal(t, admin.ID, user.InvitedBy)

	ok, err := auth.VerifyPassword(user.PasswordHash, "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	// The invitation now reports used and records who consumed it.
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationUsed, stored.Status())
	assert.Equal(t, user.ID, stored.UsedBy)

	// A second consume fails as already used.
	_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvitationUsed))
}

func TestConsumeInvitationUnknownToken(t *testing.T) {
	svc, _, _ := setupInvitationService(t)

	_, err := svc.Consume(context.Background(), "deadbeef", ConsumeInvitationRequest{Password: "password123"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestConsumeInvitationExpired(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	// Jump the service clock past the expiry.
	svc.now = func() time.Time { return resp.ExpiresAt.Add(time.Second) }

	_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvitationExpired))

	// Expiry never flips a consumed token back: consume at the boundary
	// instead, then report used even after expiry passes.
	svc.now = time.Now
	resp2, err := svc.Create(ctx, admin, CreateInvitationRequest{
		FirstName: "Mary", LastName: "Major", Email: "mary@example.com", Role: "admin",
	})
	require.NoError(t, err)
	_, err = svc.Consume(ctx, resp2.Token, ConsumeInvitationRequest{Password: "password123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return resp2.ExpiresAt.Add(time.Hour) }
	details, err := svc.Details(ctx, resp2.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationUsed, details.Status)
}

func TestConsumeInvitationWeakPassword(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	for _, pw := range []string{"", "123", "      "} {
		_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: pw})
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	}

	// The failed attempts did not burn the token.
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, stored.Status())
}

func TestConsumeInvitationExistingAccount(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	// An account for the invited address appears before the consume.
	now := time.Now()
	require.NoError(t, st.CreateUser(ctx, &domain.User{
		Record:       domain.Record{ID: "usr-taken", CreatedAt: now, UpdatedAt: now},
		Email:        "john@example.com",
		PasswordHash: "$argon2id$test",
		Role:         domain.RoleReferee,
	}))

	_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))

	// The failed consume did not burn the token: the invitation is still
	// pending, and a retry reports the account conflict again rather than
	// an already-used token.
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, stored.Status())

	_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestConsumeInvitationConcurrent(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var winners, used int
	for err := range results {
		switch {
		case err == nil:
			winners++
		case domainerrors.Is(err, domainerrors.ErrInvitationUsed):
			used++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, attempts-1, used)

	// Exactly one account exists for the invited email.
	user, err := st.GetUserByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	stored, err := st.GetInvitationByToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.UsedBy)
}

func TestInvitationDetails(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	details, err := svc.Details(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "John", details.FirstName)
	assert.Equal(t, "john@example.com", details.Email)
	assert.Equal(t, domain.InvitationPending, details.Status)
	assert.Equal(t, "Ada Admin", details.InvitedBy)

	_, err = svc.Details(ctx, "no-such-token")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRevokeInvitation(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, admin, resp.ID))

	// The token stops resolving.
	_, err = svc.Details(ctx, resp.Token)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	// And the email is free for a fresh invitation.
	_, err = svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)
}

func TestRevokeInvitationGuards(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	admin := seedAdmin(t, st, "usr-admin")

	resp, err := svc.Create(ctx, admin, validRequest())
	require.NoError(t, err)

	referee := domain.Actor{ID: "usr-ref", Role: domain.RoleReferee}
	err = svc.Revoke(ctx, referee, resp.ID)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	err = svc.Revoke(ctx, admin, "inv-missing")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	// Used invitations are immutable history.
	_, err = svc.Consume(ctx, resp.Token, ConsumeInvitationRequest{Password: "password123"})
	require.NoError(t, err)
	err = svc.Revoke(ctx, admin, resp.ID)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestListByInviter(t *testing.T) {
	svc, st, _ := setupInvitationService(t)
	ctx := context.Background()
	first := seedAdmin(t, st, "usr-a")
	second := seedAdmin(t, st, "usr-b")

	_, err := svc.Create(ctx, first, validRequest())
	require.NoError(t, err)
	_, err = svc.Create(ctx, second, CreateInvitationRequest{
		FirstName: "Mary", LastName: "Major", Email: "mary@example.com", Role: "admin",
	})
	require.NoError(t, err)

	mine, err := svc.ListByInviter(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "john@example.com", mine[0].Email)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
