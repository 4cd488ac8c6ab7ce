package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of provider token claims the dashboard reads.
// Tokens are decoded without signature verification: issuance and signing
// are the provider's concern, the claims are only used to schedule
// revalidation ahead of expiry.
type TokenClaims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// DecodeToken extracts claims from a provider JWT without verifying it.
func DecodeToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the token expiry, zero when the claim is absent.
func (c *TokenClaims) ExpiresAt() time.Time {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}
