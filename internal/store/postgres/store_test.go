package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/refhq/refhq-server/internal/store"
)

func TestTranslateConstraintErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"unique email",
			&pq.Error{Code: "23505", Constraint: "invitations_email_unique"},
			store.ErrEmailExists,
		},
		{
			"unique token",
			&pq.Error{Code: "23505", Constraint: "invitations_token_unique"},
			store.ErrTokenExists,
		},
		{
			"unique user email",
			&pq.Error{Code: "23505", Constraint: "users_email_unique"},
			store.ErrUserEmailExists,
		},
		{
			"fk inviter",
			&pq.Error{Code: "23503", Constraint: "invitations_invited_by_fkey"},
			store.ErrInviterNotFound,
		},
		{
			"not-null inviter",
			&pq.Error{Code: "23502", Column: "invited_by"},
			store.ErrInviterNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateConstraintErr(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslateConstraintErr_PassThrough(t *testing.T) {
	// Unrecognized errors surface unchanged so callers can treat them as
	// opaque storage failures.
	plain := fmt.Errorf("connection reset")
	if got := translateConstraintErr(plain); got != plain {
		t.Errorf("expected pass-through, got %v", got)
	}

	unknown := &pq.Error{Code: "23505", Constraint: "some_other_unique"}
	if got := translateConstraintErr(unknown); !errors.As(got, new(*pq.Error)) {
		t.Errorf("expected pq error pass-through, got %v", got)
	}
}
