package domain

import "time"

// Record provides common fields for persisted entities.
// It is embedded in any domain type backed by a database row.
type Record struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ID        string     `json:"id"`
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (r *Record) InitTimestamps() {
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
}

// IsDeleted returns true if this entity has been soft-deleted.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// MarkDeleted marks this entity as soft-deleted by setting DeletedAt to now.
func (r *Record) MarkDeleted() {
	now := time.Now()
	r.DeletedAt = &now
	r.UpdatedAt = now
}
