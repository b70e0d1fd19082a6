// Package session stores logged-in sessions.
//
// The CLI keeps its single session in a [FileStore] under
// ~/.config/legacylink/sessions; the API server tracks issued tokens in a
// [MemoryStore] so that logout can revoke them before they expire.
//
//	sess, err := session.New(token, user, expires)
//	if err != nil {
//	    return err
//	}
//	err = store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if sess == nil {
//	    // not found or expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/legacylink/legacylink/pkg/auth"
)

// DefaultTTL is the default session duration.
const DefaultTTL = 24 * time.Hour

// Session is one login.
type Session struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	User      *auth.User `json:"user"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserID returns the id of the session's user, or "".
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// Store is the interface for session storage backends.
type Store interface {
	// Get returns the session, or nil when it does not exist or has
	// expired.
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a session for user with a fresh id. A zero expiresAt means
// [DefaultTTL] from now.
func New(token string, user *auth.User, expiresAt time.Time) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(DefaultTTL)
	}
	return &Session{
		ID:        id,
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}
