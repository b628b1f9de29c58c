package domain

import "time"

// InvitationStatus is the derived lifecycle state of an invitation.
// It is a projection over the stored flags and the clock, never stored itself.
type InvitationStatus string

const (
	// InvitationPending means the token has neither been consumed nor expired.
	InvitationPending InvitationStatus = "pending"
	// InvitationUsed means the token has been consumed. Terminal.
	InvitationUsed InvitationStatus = "used"
	// InvitationExpired means the token's expiry has passed unconsumed. Terminal.
	InvitationExpired InvitationStatus = "expired"
)

// Invitation authorizes one specific email address to complete signup with a
// pre-assigned role, bound to a single-use token.
// Invitations are created by admins and consumed by new users during signup.
type Invitation struct {
	Record
	Token     string     `json:"token"`               // Single-use 64-hex-char token
	FirstName string     `json:"first_name"`          // Invitee given name
	LastName  string     `json:"last_name"`           // Invitee family name
	Email     string     `json:"email"`               // Normalized, unique among live invitations
	Role      Role       `json:"role"`                // Role to assign on consumption
	InvitedBy string     `json:"invited_by"`          // User ID of the inviting admin
	ExpiresAt time.Time  `json:"expires_at"`          // Absolute expiry, set at creation
	UsedAt    *time.Time `json:"used_at,omitempty"`   // When the token was consumed
	UsedBy    string     `json:"used_by,omitempty"`   // User ID created by consumption
}

// IsUsed returns true if the invitation's token has been consumed.
// Once set, this never reverts.
func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}

// IsExpiredAt returns true if the invitation's expiry has passed at the
// given instant.
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// StatusAt derives the lifecycle state at the given instant.
// A consumed token reports used even when its expiry has also passed.
func (i *Invitation) StatusAt(now time.Time) InvitationStatus {
	if i.IsUsed() {
		return InvitationUsed
	}
	if i.IsExpiredAt(now) {
		return InvitationExpired
	}
	return InvitationPending
}

// Status derives the lifecycle state against the wall clock.
func (i *Invitation) Status() InvitationStatus {
	return i.StatusAt(time.Now())
}

// IsConsumable returns true if the invitation can still be consumed at the
// given instant.
func (i *Invitation) IsConsumable(now time.Time) bool {
	return i.StatusAt(now) == InvitationPending && !i.IsDeleted()
}
