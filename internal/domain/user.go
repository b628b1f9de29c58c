package domain

// User represents an account on the platform.
// New users are only created by consuming an invitation, so every user
// carries the lineage of who invited them.
type User struct {
	Record
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         Role   `json:"role"`
	InvitedBy    string `json:"invited_by,omitempty"` // User ID of the inviting admin
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Name returns the user's display name.
func (u *User) Name() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// AsActor projects the user into the identity used for authorization checks.
func (u *User) AsActor() Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}
