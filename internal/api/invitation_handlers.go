package api

import (
	"net/http"

	"encoding/json/v2"

	"github.com/go-chi/chi/v5"

	"github.com/refhq/refhq-server/internal/domain"
	"github.com/refhq/refhq-server/internal/http/response"
	"github.com/refhq/refhq-server/internal/service"
)

// invitationView augments the stored invitation with its derived status.
type invitationView struct {
	*domain.Invitation
	Status domain.InvitationStatus `json:"status"`
}

// handleCreateInvitation creates an invitation and emails the signup link.
// POST /api/v1/invitations.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	var req service.CreateInvitationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	resp, err := s.invitations.Create(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleListInvitations returns live invitations, newest first.
// GET /api/v1/invitations. With ?mine=true only the caller's own.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	var (
		invs []*domain.Invitation
		err  error
	)
	if r.URL.Query().Get("mine") == "true" {
		invs, err = s.invitations.ListByInviter(r.Context(), actor.ID)
	} else {
		invs, err = s.invitations.List(r.Context())
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	views := make([]invitationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, invitationView{Invitation: inv, Status: inv.Status()})
	}

	response.Success(w, views, s.logger)
}

// handleRevokeInvitation withdraws an unused invitation.
// DELETE /api/v1/invitations/{id}.
func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required", s.logger)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.invitations.Revoke(r.Context(), actor, id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetInvitationDetails returns the public view of an invitation so
// the signup page can greet the invitee.
// GET /api/v1/signup/{token}.
func (s *Server) handleGetInvitationDetails(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	details, err := s.invitations.Details(r.Context(), token)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, details, s.logger)
}

// consumeResult is the public shape of a completed signup. The password
// hash never leaves the server.
type consumeResult struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role"`
}

// handleConsumeInvitation redeems a token and creates the account.
// POST /api/v1/signup/{token}/consume.
func (s *Server) handleConsumeInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req service.ConsumeInvitationRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	user, err := s.invitations.Consume(r.Context(), token, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, consumeResult{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}, s.logger)
}
