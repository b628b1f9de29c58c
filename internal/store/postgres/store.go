// Package postgres provides PostgreSQL-backed persistence for the
// invitation subsystem, using the lib/pq driver.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/refhq/refhq-server/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store provides PostgreSQL-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// execer is satisfied by both *sql.DB and *sql.Tx, so statement helpers
// can run inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open connects to PostgreSQL with the given DSN and runs the schema.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SQLSTATE classes for constraint violations.
// 23502 appears alongside 23503 here because some callers surface missing
// inviter rows as not-null failures on the resolved reference.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// translateConstraintErr maps pq constraint violations onto the store
// sentinels, keyed by SQLSTATE code and constraint name. Unrecognized
// errors pass through untouched.
func translateConstraintErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case "invitations_email_unique":
			return store.ErrEmailExists.WithCause(err)
		case "invitations_token_unique":
			return store.ErrTokenExists.WithCause(err)
		case "users_email_unique":
			return store.ErrUserEmailExists.WithCause(err)
		}
	case codeForeignKeyViolation, codeNotNullViolation:
		if pqErr.Constraint == "invitations_invited_by_fkey" || pqErr.Column == "invited_by" {
			return store.ErrInviterNotFound.WithCause(err)
		}
	}
	return err
}
