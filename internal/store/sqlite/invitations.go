package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/refhq/refhq-server/internal/domain"
	"github.com/refhq/refhq-server/internal/store"
)

// invitationColumns is the ordered list of columns selected in invitation
// queries. Must match the scan order in scanInvitation.
const invitationColumns = `id, created_at, updated_at, deleted_at,
	token, first_name, last_name, email, role, invited_by, expires_at, used_at, used_by`

// scanInvitation scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Invitation.
func scanInvitation(scanner interface{ Scan(dest ...any) error }) (*domain.Invitation, error) {
	var inv domain.Invitation

	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		role      string
		expiresAt string
		usedAt    sql.NullString
		usedBy    sql.NullString
	)

	err := scanner.Scan(
		&inv.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&inv.Token,
		&inv.FirstName,
		&inv.LastName,
		&inv.Email,
		&role,
		&inv.InvitedBy,
		&expiresAt,
		&usedAt,
		&usedBy,
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps.
	inv.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	inv.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	inv.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}
	inv.ExpiresAt, err = parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	inv.UsedAt, err = parseNullableTime(usedAt)
	if err != nil {
		return nil, err
	}

	inv.Role = domain.Role(role)

	if usedBy.Valid {
		inv.UsedBy = usedBy.String
	}

	return &inv, nil
}

// CreateInvitation inserts a new invitation.
// Constraint violations come back as the store sentinels: duplicate email,
// duplicate token, or missing inviter.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (
			id, created_at, updated_at, deleted_at,
			token, first_name, last_name, email, role, invited_by, expires_at, used_at, used_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		formatTime(inv.CreatedAt),
		formatTime(inv.UpdatedAt),
		nullTimeString(inv.DeletedAt),
		inv.Token,
		inv.FirstName,
		inv.LastName,
		inv.Email,
		string(inv.Role),
		inv.InvitedBy,
		formatTime(inv.ExpiresAt),
		nullTimeString(inv.UsedAt),
		nullString(inv.UsedBy),
	)
	if err != nil {
		return translateInvitationErr(err)
	}
	return nil
}

// translateInvitationErr maps sqlite constraint failures onto the store
// sentinels.
func translateInvitationErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "invitations.email"):
		return store.ErrEmailExists
	case strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "invitations.token"):
		return store.ErrTokenExists
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.ErrInviterNotFound
	}
	return err
}

// GetInvitation retrieves an invitation by ID, excluding revoked records.
// Returns store.ErrNotFound if the invitation does not exist.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ? AND deleted_at IS NULL`, id)

	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvitationByToken retrieves an invitation by its token, excluding
// revoked records. Returns store.ErrNotFound if no such token exists.
func (s *Store) GetInvitationByToken(ctx context.Context, tok string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = ? AND deleted_at IS NULL`, tok)

	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ConsumeInvitation atomically consumes the token and creates the invited
// user's account in one transaction. The row is updated only if it is
// still unused and not revoked; zero affected rows means another consumer
// won the race (or the token is gone) and nothing is inserted. A failed
// user insert rolls the claim back, leaving the invitation pending.
func (s *Store) ConsumeInvitation(ctx context.Context, tok string, user *domain.User, usedAt time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE invitations SET
			used_at = ?,
			used_by = ?,
			updated_at = ?
		WHERE token = ? AND used_at IS NULL AND deleted_at IS NULL`,
		formatTime(usedAt),
		nullString(user.ID),
		formatTime(usedAt),
		tok,
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return 0, err
	}

	return affected, tx.Commit()
}

// ListInvitations returns all non-revoked invitations ordered by created_at
// descending.
func (s *Store) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectInvitations(rows)
}

// ListInvitationsByInviter returns all non-revoked invitations created by a
// specific admin, ordered by created_at descending.
func (s *Store) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		WHERE invited_by = ? AND deleted_at IS NULL
		ORDER BY created_at DESC`,
		inviterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectInvitations(rows)
}

func collectInvitations(rows *sql.Rows) ([]*domain.Invitation, error) {
	var invitations []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

// DeleteInvitation revokes an invitation by setting its deleted_at
// timestamp. This operation is idempotent.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET
			deleted_at = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		now,
		now,
		id,
	)
	return err
}
