package domain

// Role represents a permission level in the system.
type Role string

const (
	// RoleAdmin grants full administrative access, including inviting users.
	RoleAdmin Role = "admin"
	// RoleReferee grants standard officiating access.
	RoleReferee Role = "referee"
)

// IsValid returns true if the role is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleReferee
}

// Actor is the identity performing an operation.
// Some identity sources carry a single role, others a set; both are modeled
// here so authorization checks live in one place instead of being scattered
// across callers.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
	Roles []Role `json:"roles,omitempty"`
}

// HasRole returns true if the actor's primary role matches target,
// or target appears in the actor's additional roles.
func (a Actor) HasRole(target Role) bool {
	if a.Role == target {
		return true
	}
	for _, r := range a.Roles {
		if r == target {
			return true
		}
	}
	return false
}

// CanInvite returns true if the actor may create invitations.
// Only admins invite.
func (a Actor) CanInvite() bool {
	return a.HasRole(RoleAdmin)
}
