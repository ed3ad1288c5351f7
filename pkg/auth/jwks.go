package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates a raw JWT and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
	Close()
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	// SkipVerification parses tokens without checking signatures.
	SkipVerification bool
	// JWKSEndpoints maps issuer URLs to their JWKS endpoint URLs.
	// Only tokens from issuers in this map are accepted.
	JWKSEndpoints map[string]string
}

// JWKSClient validates JWTs with keys fetched from per-issuer JWKS endpoints.
type JWKSClient struct {
	endpoints map[string]keyfunc.Keyfunc
	config    *JWKSConfig
	cancel    context.CancelFunc
}

// NewJWKSClient fetches the JWKS of every configured issuer. Keys are
// refreshed in the background until Close.
func NewJWKSClient(ctx context.Context, config *JWKSConfig) (*JWKSClient, error) {
	ctx, cancel := context.WithCancel(ctx)
	client := &JWKSClient{
		endpoints: make(map[string]keyfunc.Keyfunc),
		config:    config,
		cancel:    cancel,
	}

	if config.SkipVerification {
		return client, nil
	}

	for issuer, jwksURL := range config.JWKSEndpoints {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", issuer, err)
		}
		client.endpoints[issuer] = jwks
	}

	return client, nil
}

// ValidateToken verifies the RS256 signature with the issuer's keys and
// checks the registered claims.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	if c.config.SkipVerification {
		return c.parseUnverifiedToken(tokenString)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}

		jwks, exists := c.endpoints[claims.Issuer]
		if !exists {
			return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
		}
		return jwks.Keyfunc(token)
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

func (c *JWKSClient) parseUnverifiedToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// Close stops background key refresh.
func (c *JWKSClient) Close() {
	c.cancel()
}

var _ TokenValidator = (*JWKSClient)(nil)
