// Package identity is the authentication boundary. Provider is what the
// rest of the application depends on; Directory and Client are the local,
// bcrypt-backed implementation stored alongside the application records.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Credential and session failures. All of them are reported inside an
// *AuthError.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrNoSession          = errors.New("not signed in")
)

// AuthError is a credential or session failure. Callers may retry.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Identity is the raw authenticated principal: an opaque id and an email.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in identity plus its access token.
type Session struct {
	AccessToken string    `json:"-"`
	Identity    Identity  `json:"identity"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// EventKind is a session transition.
type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	}
	return "unknown"
}

// Event is delivered to OnSessionChange handlers. Session is nil for
// SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is the identity boundary the application depends on.
type Provider interface {
	// CurrentSession returns the live session, or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// OnSessionChange delivers every later transition to handler until the
	// returned func is called.
	OnSessionChange(handler func(Event)) (unsubscribe func())
}
