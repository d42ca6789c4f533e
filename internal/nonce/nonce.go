// Package nonce issues and verifies short-lived, action-bound request tokens.
//
// Tokens protect the calendar form from cross-site submission. A token is an
// HMAC over the current time tick and the action name; it stays valid for the
// tick it was issued in and the one after, so a page rendered just before a
// tick boundary still works.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32

	// DefaultLifetime is how long a token stays valid at most.
	DefaultLifetime = 24 * time.Hour

	tokenBytes = 10
)

// ErrEmptySecret is returned by New when no secret is configured.
var ErrEmptySecret = errors.New("nonce secret is empty")

// AuthorizationError reports a request that failed the nonce check.
type AuthorizationError struct {
	Action string
	Reason string
}

// Error implements the error interface
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("nonce for %q did not verify: %s", e.Action, e.Reason)
}

// Unauthorized marks the error as an authorization failure
func (e *AuthorizationError) Unauthorized() bool {
	return true
}

// Issuer creates and verifies tokens
type Issuer struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option configures an Issuer
type Option func(*Issuer)

// WithLifetime overrides DefaultLifetime
func WithLifetime(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.lifetime = d
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// New derives the signing key from secret with PBKDF2-SHA256.
func New(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	// The salt is derived from the secret so the same secret yields the same
	// key across restarts and replicas
	salt := sha256.Sum256([]byte(secret + "workday-calendar-nonce"))
	key := pbkdf2.Key([]byte(secret), salt[:], iterations, keySize, sha256.New)

	i := &Issuer{
		key:      key,
		lifetime: DefaultLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// tick returns the index of the half-lifetime window containing now
func (i *Issuer) tick() int64 {
	half := int64(i.lifetime / 2 / time.Second)
	if half < 1 {
		half = 1
	}
	secs := i.now().Unix()
	// Round up like WordPress so tick 0 never occurs for positive times
	return (secs + half - 1) / half
}

func (i *Issuer) sign(tick int64, action string) string {
	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	return hex.EncodeToString(mac.Sum(nil)[:tokenBytes])
}

// Create issues a token for action
func (i *Issuer) Create(action string) string {
	return i.sign(i.tick(), action)
}

// Verify checks token against action. It returns nil or *AuthorizationError.
func (i *Issuer) Verify(token, action string) error {
	if token == "" {
		return &AuthorizationError{Action: action, Reason: "missing token"}
	}

	tick := i.tick()
	for _, t := range []int64{tick, tick - 1} {
		expected := i.sign(t, action)
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1 {
			return nil
		}
	}
	return &AuthorizationError{Action: action, Reason: "invalid or expired token"}
}
