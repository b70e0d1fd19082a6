// Package auth authenticates users against identity providers and issues
// the bearer tokens the API accepts.
//
// Real OAuth providers are out of scope; [MockProvider] stands in for
// Google, Apple, Facebook, and email sign-in and accepts any well-formed
// address.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"slices"
	"strings"

	"github.com/legacylink/legacylink/pkg/errors"
)

// Provider names.
const (
	ProviderGoogle   = "google"
	ProviderApple    = "apple"
	ProviderFacebook = "facebook"
	ProviderEmail    = "email"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderGoogle, ProviderApple, ProviderFacebook, ProviderEmail}

// User is an authenticated identity.
type User struct {
	// ID is "provider:hash" and stable across logins.
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// LocalUser is the identity used when authentication is disabled.
var LocalUser = User{ID: "local", Name: "Local User", Provider: "local"}

// Credentials is what a client presents to log in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=200"`
	Password string `json:"password,omitempty"`
}

// Provider verifies credentials and returns the user they belong to.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*User, error)
}

// MockProvider accepts any well-formed email address. The user id is
// derived from the provider and the lowercased address.
type MockProvider struct {
	name string
}

// NewMockProvider returns a mock for one of [Providers].
func NewMockProvider(name string) (*MockProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(Providers, name) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown auth provider: %q (must be one of: %s)",
			name, strings.Join(Providers, ", "))
	}
	return &MockProvider{name: name}, nil
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(creds.Email))
	if err != nil || addr.Name != "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid email address")
	}
	email := strings.ToLower(addr.Address)

	name := strings.TrimSpace(creds.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	sum := sha256.Sum256([]byte(email))
	return &User{
		ID:       p.name + ":" + hex.EncodeToString(sum[:8]),
		Name:     name,
		Email:    email,
		Provider: p.name,
	}, nil
}

var _ Provider = (*MockProvider)(nil)
