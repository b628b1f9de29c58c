package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	h1, err := HashPassword("password123")
	require.NoError(t, err)
	h2, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}
