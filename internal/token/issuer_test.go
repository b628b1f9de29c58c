package token

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexToken = regexp.MustCompile(`^[a-f0-9]+$`)

func TestIssue_Format(t *testing.T) {
	issuer := NewIssuer(0, 0)

	issued, err := issuer.Issue()
	require.NoError(t, err)

	assert.Len(t, issued.Token, 64)
	assert.Regexp(t, hexToken, issued.Token)
}

func TestIssue_Unique(t *testing.T) {
	issuer := NewIssuer(0, 0)

	seen := make(map[string]bool, 1000)
	for range 1000 {
		issued, err := issuer.Issue()
		require.NoError(t, err)
		require.False(t, seen[issued.Token], "token repeated: %s", issued.Token)
		seen[issued.Token] = true
	}
}

func TestIssue_ExpiryOffset(t *testing.T) {
	// Frozen clock: expiry must be exactly one offset past issuance.
	fixed := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	issuer := NewIssuer(0, 0, WithClock(func() time.Time { return fixed }))

	issued, err := issuer.Issue()
	require.NoError(t, err)

	assert.Equal(t, fixed, issued.IssuedAt)
	assert.Equal(t, 7*24*time.Hour, issued.ExpiresAt.Sub(issued.IssuedAt))
}

func TestIssue_ConfiguredTTL(t *testing.T) {
	issuer := NewIssuer(0, 48*time.Hour)

	issued, err := issuer.Issue()
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, issued.ExpiresAt.Sub(issued.IssuedAt))
}

func TestIssue_ConfiguredByteLength(t *testing.T) {
	issuer := NewIssuer(16, 0)

	issued, err := issuer.Issue()
	require.NoError(t, err)
	assert.Len(t, issued.Token, 32)
	assert.Regexp(t, hexToken, issued.Token)
}

func TestIssue_ConcurrentCallers(t *testing.T) {
	issuer := NewIssuer(0, 0)

	const workers = 8
	const perWorker = 50

	results := make(chan string, workers*perWorker)
	for range workers {
		go func() {
			for range perWorker {
				issued, err := issuer.Issue()
				if err != nil {
					results <- ""
					continue
				}
				results <- issued.Token
			}
		}()
	}

	seen := make(map[string]bool, workers*perWorker)
	for range workers * perWorker {
		tok := <-results
		require.NotEmpty(t, tok)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
