// Package admin signs the site operator in and guards the admin pages.
package admin

import (
	"errors"
	"time"
)

// CookieName holds the signed admin token.
const CookieName = "admin_token"

// ContextKey is where the validated token is stored in fiber locals.
const ContextKey = "admin"

// DefaultTokenTTL is how long a sign-in lasts.
const DefaultTokenTTL = 12 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDisabled           = errors.New("admin access is not configured")
)

// Config comes from ADMIN_USER, ADMIN_PASSWORD_HASH and JWT_SECRET.
type Config struct {
	User         string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

// Enabled reports whether every setting needed to sign in is present.
func (c Config) Enabled() bool {
	return c.User != "" && c.PasswordHash != "" && c.Secret != ""
}
