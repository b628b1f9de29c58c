package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/refhq/refhq-server/internal/domain"
	"github.com/refhq/refhq-server/internal/store"
)

const invitationColumns = `id, created_at, updated_at, deleted_at,
	token, first_name, last_name, email, role, invited_by, expires_at, used_at, used_by`

func scanInvitation(scanner interface{ Scan(dest ...any) error }) (*domain.Invitation, error) {
	var inv domain.Invitation

	var (
		deletedAt sql.NullTime
		role      string
		usedAt    sql.NullTime
		usedBy    sql.NullString
	)

	err := scanner.Scan(
		&inv.ID,
		&inv.CreatedAt,
		&inv.UpdatedAt,
		&deletedAt,
		&inv.Token,
		&inv.FirstName,
		&inv.LastName,
		&inv.Email,
		&role,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&usedAt,
		&usedBy,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		inv.DeletedAt = &t
	}
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	if usedBy.Valid {
		inv.UsedBy = usedBy.String
	}
	inv.Role = domain.Role(role)

	return &inv, nil
}

// CreateInvitation inserts a new invitation.
// Constraint violations (unique email, unique token, missing inviter) come
// back as the store sentinels.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (
			id, created_at, updated_at, deleted_at,
			token, first_name, last_name, email, role, invited_by, expires_at, used_at, used_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID,
		inv.CreatedAt,
		inv.UpdatedAt,
		nullTime(inv.DeletedAt),
		inv.Token,
		inv.FirstName,
		inv.LastName,
		inv.Email,
		string(inv.Role),
		inv.InvitedBy,
		inv.ExpiresAt,
		nullTime(inv.UsedAt),
		nullStr(inv.UsedBy),
	)
	if err != nil {
		return translateConstraintErr(err)
	}
	return nil
}

// GetInvitation retrieves an invitation by ID, excluding revoked records.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1 AND deleted_at IS NULL`, id)

	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvitationByToken retrieves an invitation by token, excluding revoked
// records.
func (s *Store) GetInvitationByToken(ctx context.Context, tok string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1 AND deleted_at IS NULL`, tok)

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
// user's account in one transaction. The conditional WHERE makes
// concurrent consumers serialize on the row, and losers see zero affected
// rows with nothing inserted. A failed user insert rolls the claim back,
// leaving the invitation pending.
func (s *Store) ConsumeInvitation(ctx context.Context, tok string, user *domain.User, usedAt time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE invitations SET
			used_at = $1,
			used_by = $2,
			updated_at = $1
		WHERE token = $3 AND used_at IS NULL AND deleted_at IS NULL`,
		usedAt,
		nullStr(user.ID),
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

// ListInvitations returns all non-revoked invitations, newest first.
func (s *Store) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectInvitations(rows)
}

// ListInvitationsByInviter returns all non-revoked invitations created by
// one admin, newest first.
func (s *Store) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		WHERE invited_by = $1 AND deleted_at IS NULL
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

// DeleteInvitation revokes an invitation (soft delete). Idempotent.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET
			deleted_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
