package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents the claims in a JWT token. UserID is the opaque identity
// issued by the identity provider.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// GetSubject falls back to UserID when sub is absent.
func (c *TokenClaims) GetSubject() (string, error) {
	if c.Subject == "" {
		return c.UserID, nil
	}
	return c.RegisteredClaims.GetSubject()
}
