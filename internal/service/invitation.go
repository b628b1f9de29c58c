package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/refhq/refhq-server/internal/auth"
	"github.com/refhq/refhq-server/internal/domain"
	domainerrors "github.com/refhq/refhq-server/internal/errors"
	"github.com/refhq/refhq-server/internal/id"
	"github.com/refhq/refhq-server/internal/mail"
	"github.com/refhq/refhq-server/internal/normalize"
	"github.com/refhq/refhq-server/internal/store"
	"github.com/refhq/refhq-server/internal/token"
	"github.com/refhq/refhq-server/internal/validation"
)

// InvitationService handles invitation creation, lookup, consumption, and
// revocation. All clock reads go through now so tests can freeze time.
type InvitationService struct {
	store     store.Store
	mailer    mail.Mailer
	issuer    *token.Issuer
	validator *validation.Validator
	logger    *slog.Logger
	baseURL   string // Frontend base URL for signup links
	now       func() time.Time
}

// NewInvitationService creates a new invitation service. baseURL is the
// frontend origin invitation links point at, without a trailing slash.
func NewInvitationService(
	store store.Store,
	mailer mail.Mailer,
	issuer *token.Issuer,
	validator *validation.Validator,
	logger *slog.Logger,
	baseURL string,
) *InvitationService {
	return &InvitationService{
		store:     store,
		mailer:    mailer,
		issuer:    issuer,
		validator: validator,
		logger:    logger,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// CreateInvitationRequest contains the data needed to create an invitation.
// Fields arrive raw; the service sanitizes before validating.
type CreateInvitationRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// CreateInvitationResponse is returned after creating an invitation.
// DeliveryWarning is set when the invitation was persisted but the email
// could not be sent; the invitation itself is still live.
type CreateInvitationResponse struct {
	*domain.Invitation
	Link            string `json:"link"`
	DeliveryWarning string `json:"delivery_warning,omitempty"`
}

// InvitationDetailsResponse is returned for public token lookups on the
// signup page. It never includes the token itself or the inviter's ID.
type InvitationDetailsResponse struct {
	FirstName string                  `json:"first_name"`
	LastName  string                  `json:"last_name"`
	Email     string                  `json:"email"`
	Role      domain.Role             `json:"role"`
	Status    domain.InvitationStatus `json:"status"`
	ExpiresAt time.Time               `json:"expires_at"`
	InvitedBy string                  `json:"invited_by"`
}

// ConsumeInvitationRequest contains the data needed to complete signup.
type ConsumeInvitationRequest struct {
	Password string `json:"password"`
}

// SignupLink returns the full URL a recipient follows to complete signup.
func (s *InvitationService) SignupLink(tok string) string {
	return s.baseURL + "/complete-signup?token=" + url.QueryEscape(tok)
}

// Create creates an invitation on behalf of actor and emails the signup
// link to the invitee. Only admins may invite. Email delivery is best
// effort: a send failure surfaces as DeliveryWarning, not as an error.
func (s *InvitationService) Create(ctx context.Context, actor domain.Actor, req CreateInvitationRequest) (*CreateInvitationResponse, error) {
	if !actor.CanInvite() {
		return nil, domainerrors.Forbidden("only admins can send invitations")
	}

	payload := normalize.Sanitize(normalize.Payload{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err := s.validator.ValidateInvite(payload); err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue()
	if err != nil {
		return nil, fmt.Errorf("issue invitation token: %w", err)
	}

	invID, err := id.Generate("inv")
	if err != nil {
		return nil, fmt.Errorf("generate invitation ID: %w", err)
	}

	inv := &domain.Invitation{
		Record:    domain.Record{ID: invID},
		Token:     issued.Token,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Role:      domain.Role(payload.Role),
		InvitedBy: actor.ID,
		ExpiresAt: issued.ExpiresAt,
	}
	inv.InitTimestamps()

	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		switch {
		case domainerrors.Is(err, store.ErrEmailExists):
			return nil, domainerrors.AlreadyExists("an invitation for this email already exists")
		case domainerrors.Is(err, store.ErrInviterNotFound):
			return nil, domainerrors.InvalidActor("inviting user does not exist")
		case domainerrors.Is(err, store.ErrTokenExists):
			// 256-bit tokens make this a hardware problem, not a retry loop.
			return nil, domainerrors.Conflict("token collision, please try again")
		default:
			return nil, fmt.Errorf("create invitation: %w", err)
		}
	}

	s.logger.Info("invitation created",
		"invitation_id", inv.ID,
		"email", inv.Email,
		"role", inv.Role,
		"invited_by", actor.ID,
		"expires_at", inv.ExpiresAt,
	)

	resp := &CreateInvitationResponse{
		Invitation: inv,
		Link:       s.SignupLink(inv.Token),
	}

	if err := s.mailer.SendInvite(ctx, mail.Invite{
		To:        inv.Email,
		FirstName: inv.FirstName,
		Link:      resp.Link,
		ExpiresIn: formatTTL(s.issuer.TTL()),
	}); err != nil {
		s.logger.Warn("invitation created but email delivery failed",
			"invitation_id", inv.ID,
			"email", inv.Email,
			"error", err,
		)
		resp.DeliveryWarning = "invitation created but the email could not be sent"
	}

	return resp, nil
}

// Details returns the public view of an invitation for the signup page.
func (s *InvitationService) Details(ctx context.Context, tok string) (*InvitationDetailsResponse, error) {
	inv, err := s.store.GetInvitationByToken(ctx, tok)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	inviterName := "an administrator"
	if inviter, err := s.store.GetUser(ctx, inv.InvitedBy); err == nil {
		inviterName = inviter.Name()
	}

	return &InvitationDetailsResponse{
		FirstName: inv.FirstName,
		LastName:  inv.LastName,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.StatusAt(s.now()),
		ExpiresAt: inv.ExpiresAt,
		InvitedBy: inviterName,
	}, nil
}

// Consume redeems an invitation token and creates the invited user's
// account. The token claim is a conditional update keyed on the unused
// state, committed together with the account insert, so exactly one of
// any set of concurrent callers wins; the rest get an already-used error.
// A consume that fails past the claim leaves the invitation pending.
func (s *InvitationService) Consume(ctx context.Context, tok string, req ConsumeInvitationRequest) (*domain.User, error) {
	inv, err := s.store.GetInvitationByToken(ctx, tok)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	switch inv.StatusAt(s.now()) {
	case domain.InvitationUsed:
		return nil, domainerrors.InvitationUsed("invitation has already been used")
	case domain.InvitationExpired:
		return nil, domainerrors.InvitationExpired("invitation has expired")
	}

	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Record:       domain.Record{ID: userID},
		Email:        inv.Email,
		PasswordHash: passwordHash,
		FirstName:    inv.FirstName,
		LastName:     inv.LastName,
		Role:         inv.Role,
		InvitedBy:    inv.InvitedBy,
	}
	user.InitTimestamps()

	// Claim the token and create the account in one transaction. Whoever
	// flips unused to used owns the invitation; everyone else lost the
	// race. A failed account insert rolls the claim back, so the token is
	// never burned without an account to show for it.
	affected, err := s.store.ConsumeInvitation(ctx, tok, user, s.now())
	if err != nil {
		if domainerrors.Is(err, store.ErrUserEmailExists) {
			return nil, domainerrors.AlreadyExists("an account with this email already exists")
		}
		return nil, fmt.Errorf("consume invitation: %w", err)
	}
	if affected == 0 {
		return nil, domainerrors.InvitationUsed("invitation has already been used")
	}

	s.logger.Info("invitation consumed",
		"invitation_id", inv.ID,
		"user_id", userID,
		"email", user.Email,
		"role", user.Role,
	)

	return user, nil
}

// List returns all live invitations, newest first.
func (s *InvitationService) List(ctx context.Context) ([]*domain.Invitation, error) {
	invs, err := s.store.ListInvitations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// ListByInviter returns all live invitations created by one admin.
func (s *InvitationService) ListByInviter(ctx context.Context, inviterID string) ([]*domain.Invitation, error) {
	invs, err := s.store.ListInvitationsByInviter(ctx, inviterID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// Revoke withdraws an unused invitation. A consumed invitation cannot be
// revoked; revoking frees the email address for a fresh invitation.
func (s *InvitationService) Revoke(ctx context.Context, actor domain.Actor, invID string) error {
	if !actor.CanInvite() {
		return domainerrors.Forbidden("only admins can revoke invitations")
	}

	inv, err := s.store.GetInvitation(ctx, invID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("invitation not found")
		}
		return fmt.Errorf("get invitation: %w", err)
	}

	if inv.IsUsed() {
		return domainerrors.Conflict("cannot revoke a used invitation")
	}

	if err := s.store.DeleteInvitation(ctx, invID); err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}

	s.logger.Info("invitation revoked",
		"invitation_id", invID,
		"revoked_by", actor.ID,
	)

	return nil
}

func formatTTL(ttl time.Duration) string {
	days := int(ttl.Hours() / 24)
	switch {
	case days == 1:
		return "1 day"
	case days > 1:
		return fmt.Sprintf("%d days", days)
	default:
		return ttl.String()
	}
}
