// Package auth validates bearer tokens on the account routes. Tokens are JWTs
// verified against the JWKS of whitelisted issuers.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// Claims is the token payload. AccountID names the only account the token
// may act on.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string   `json:"aid,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
