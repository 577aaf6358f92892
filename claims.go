package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claims set carried by issued access tokens. The
// subject claim holds the username.
type TokenClaims struct {
	jwt.RegisteredClaims
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

// NewTokenClaims creates a claims set for the given username.
func NewTokenClaims(username string) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: username,
		},
	}
}

// Username returns the subject claim.
func (c *TokenClaims) Username() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenData projects the claims onto their transient form. A missing
// subject is a credentials failure, not a decode failure.
func (c *TokenClaims) TokenData() (*TokenData, error) {
	if c.RegisteredClaims.Subject == "" {
		return nil, ErrCouldNotValidate
	}
	return &TokenData{Username: c.RegisteredClaims.Subject}, nil
}
