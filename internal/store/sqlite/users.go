package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/refhq/refhq-server/internal/domain"
	"github.com/refhq/refhq-server/internal/store"
)

const userColumns = `id, created_at, updated_at, deleted_at,
	email, password_hash, first_name, last_name, role, invited_by`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		role      string
		invitedBy sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
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

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	u.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	u.Role = domain.Role(role)
	if invitedBy.Valid {
		u.InvitedBy = invitedBy.String
	}

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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		nullTimeString(user.DeletedAt),
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		nullString(user.InvitedBy),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") && strings.Contains(err.Error(), "users.email") {
			return store.ErrUserEmailExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID, excluding soft-deleted records.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)

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
// soft-deleted records. Returns store.ErrNotFound if no such user exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
