package postgres

import (
	"context"
	"database/sql"

	"github.com/refhq/refhq-server/internal/domain"
	"github.com/refhq/refhq-server/internal/store"
)

const userColumns = `id, created_at, updated_at, deleted_at,
	email, password_hash, first_name, last_name, role, invited_by`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		deletedAt sql.NullTime
		role      string
		invitedBy sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&u.CreatedAt,
		&u.UpdatedAt,
		&deletedAt,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&role,
		&invitedBy,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	if invitedBy.Valid {
		u.InvitedBy = invitedBy.String
	}
	u.Role = domain.Role(role)

	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrUserEmailExists if the email is already registered.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, s.db, user)
}

// insertUser runs the user INSERT against db, which is either the pool or
// an open transaction.
func insertUser(ctx context.Context, db execer, user *domain.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, deleted_at,
			email, password_hash, first_name, last_name, role, invited_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID,
		user.CreatedAt,
		user.UpdatedAt,
		nullTime(user.DeletedAt),
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		nullStr(user.InvitedBy),
	)
	if err != nil {
		return translateConstraintErr(err)
	}
	return nil
}

// GetUser retrieves a user by ID, excluding soft-deleted records.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user by normalized email, excluding
// soft-deleted records.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
