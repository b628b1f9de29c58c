// Package token issues the single-use invitation tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultByteLength is the token entropy in bytes (32 bytes = 256 bits,
	// rendered as 64 hex characters).
	DefaultByteLength = 32
	// DefaultTTL is the default time until an invitation expires.
	DefaultTTL = 7 * 24 * time.Hour
)

// Issued is a freshly minted token with its validity window.
// Both timestamps come from a single clock read so they never drift.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints opaque invitation tokens. Safe for concurrent use: it holds
// no mutable state, only the random source and clock it was built with.
type Issuer struct {
	byteLength int
	ttl        time.Duration
	random     io.Reader
	now        func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithRandom overrides the random source, for tests. Production code must
// leave this alone; tokens have to come from a cryptographically secure
// source.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) { i.random = r }
}

// NewIssuer creates an issuer with the given token byte length and expiry
// offset. Non-positive values select the defaults.
func NewIssuer(byteLength int, ttl time.Duration, opts ...Option) *Issuer {
	if byteLength <= 0 {
		byteLength = DefaultByteLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{
		byteLength: byteLength,
		ttl:        ttl,
		random:     rand.Reader,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints a fresh token. The token is lowercase hex; its expiry is the
// issue instant plus the configured offset. Uniqueness is probabilistic
// here; the storage layer's unique constraint is the hard guard.
func (i *Issuer) Issue() (Issued, error) {
	b := make([]byte, i.byteLength)
	if _, err := io.ReadFull(i.random, b); err != nil {
		return Issued{}, fmt.Errorf("read random bytes: %w", err)
	}

	issuedAt := i.now()
	return Issued{
		Token:     hex.EncodeToString(b),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(i.ttl),
	}, nil
}

// TTL returns the configured expiry offset.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
