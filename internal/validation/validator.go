// Package validation provides input validation for the invitation flow,
// built on the validator/v10 library with domain error conversion.
package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/refhq/refhq-server/internal/domain"
	domainerrors "github.com/refhq/refhq-server/internal/errors"
	"github.com/refhq/refhq-server/internal/normalize"
)

// emailPattern matches "non-whitespace local part @ non-whitespace domain
// . non-whitespace TLD". Deliberately loose about what the parts contain;
// the mailbox proves itself when the invitation email arrives.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DefaultPasswordMinLength is used when no minimum is configured.
const DefaultPasswordMinLength = 6

// Validator checks invitation payloads and signup credentials.
type Validator struct {
	v                 *validator.Validate
	passwordMinLength int
}

// New creates a validator configured for our domain.
// passwordMinLength <= 0 selects the default minimum.
func New(passwordMinLength int) *Validator {
	if passwordMinLength <= 0 {
		passwordMinLength = DefaultPasswordMinLength
	}

	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove options like omitempty, -
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	return &Validator{v: v, passwordMinLength: passwordMinLength}
}

// ValidateEmail reports whether s looks like a deliverable address.
// Never returns an error; malformed input is simply false.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// invitePresence mirrors the invitation payload for required-field
// validation. Field order defines the order missing fields are reported in.
type invitePresence struct {
	Email     string `json:"email" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required"`
}

// ValidateInvite checks a sanitized invitation payload.
// Checks run in order (required fields, then email shape, then role
// membership) and the first failure is returned as a validation error
// naming the field.
func (vl *Validator) ValidateInvite(p normalize.Payload) error {
	presence := invitePresence{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
	}
	if err := vl.v.Struct(presence); err != nil {
		var verrs validator.ValidationErrors
		if domainerrors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			return domainerrors.ValidationField(field, field+" is required")
		}
		return err
	}

	if !ValidateEmail(p.Email) {
		return domainerrors.ValidationField("email", "email must be a valid email address")
	}

	if !domain.Role(p.Role).IsValid() {
		return domainerrors.ValidationField("role", "role must be one of: referee, admin")
	}

	return nil
}

// ValidatePassword checks a signup password: present and, after trimming,
// at least the configured minimum length. Whitespace-only passwords fail.
func (vl *Validator) ValidatePassword(pw string) error {
	if len(strings.TrimSpace(pw)) < vl.passwordMinLength {
		return domainerrors.ValidationField("password",
			"password must be at least "+strconv.Itoa(vl.passwordMinLength)+" characters")
	}
	return nil
}

// FailedField extracts the offending field name from a validation error,
// or "" if err is not a field-level validation error.
func FailedField(err error) string {
	var derr *domainerrors.Error
	if !domainerrors.As(err, &derr) || derr.Code != domainerrors.CodeValidation {
		return ""
	}
	if details, ok := derr.Details.(map[string]string); ok {
		return details["field"]
	}
	return ""
}

