package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refhq/refhq-server/internal/normalize"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.org",
		"ref+league@clubs.co.uk",
		"josé@example.com",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), "expected valid: %s", email)
	}

	invalid := []string{
		"invalid-email",
		"@domain.com",
		"user@",
		"user@domain.",
		"user @domain.com",
		"user@dom ain.com",
		"",
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), "expected invalid: %s", email)
	}
}

func validPayload() normalize.Payload {
	return normalize.Payload{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Role:      "referee",
	}
}

func TestValidateInvite_Valid(t *testing.T) {
	v := New(0)
	assert.NoError(t, v.ValidateInvite(validPayload()))

	p := validPayload()
	p.Role = "admin"
	assert.NoError(t, v.ValidateInvite(p))
}

func TestValidateInvite_RequiredFields(t *testing.T) {
	v := New(0)

	tests := []struct {
		name   string
		mutate func(*normalize.Payload)
		field  string
	}{
		{"missing email", func(p *normalize.Payload) { p.Email = "" }, "email"},
		{"missing first name", func(p *normalize.Payload) { p.FirstName = "" }, "first_name"},
		{"missing last name", func(p *normalize.Payload) { p.LastName = "" }, "last_name"},
		{"missing role", func(p *normalize.Payload) { p.Role = "" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			err := v.ValidateInvite(p)
			require.Error(t, err)
			assert.Equal(t, tt.field, FailedField(err))
		})
	}
}

func TestValidateInvite_FailFastOrder(t *testing.T) {
	// Email presence is reported before any other problem.
	v := New(0)
	err := v.ValidateInvite(normalize.Payload{Role: "moderator"})
	require.Error(t, err)
	assert.Equal(t, "email", FailedField(err))
}

func TestValidateInvite_BadEmailShape(t *testing.T) {
	v := New(0)
	p := validPayload()
	p.Email = "not-an-email"
	err := v.ValidateInvite(p)
	require.Error(t, err)
	assert.Equal(t, "email", FailedField(err))
}

func TestValidateInvite_UnknownRole(t *testing.T) {
	v := New(0)
	p := validPayload()
	p.Role = "moderator"
	err := v.ValidateInvite(p)
	require.Error(t, err)
	assert.Equal(t, "role", FailedField(err))
}

func TestValidatePassword(t *testing.T) {
	v := New(0)

	assert.NoError(t, v.ValidatePassword("password123"))
	assert.NoError(t, v.ValidatePassword("Test@123456"))

	for _, pw := range []string{"123", "", "     "} {
		err := v.ValidatePassword(pw)
		require.Error(t, err, "expected rejection for %q", pw)
		assert.Equal(t, "password", FailedField(err))
	}
}

func TestValidatePassword_ConfiguredMinimum(t *testing.T) {
	v := New(10)
	assert.Error(t, v.ValidatePassword("short123"))
	assert.NoError(t, v.ValidatePassword("longenough12"))
}
