package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is what can be learned from a token without the server.
// Opaque (non-JWT) tokens yield the zero value.
type tokenClaims struct {
	identity Identity
	expires  time.Time
}

type identityClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// peekClaims decodes a JWT without verifying its signature. The client has
// no key to verify with; the server stays the authority via Me.
func peekClaims(token string) (tokenClaims, bool) {
	var claims identityClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return tokenClaims{}, false
	}
	tc := tokenClaims{
		identity: Identity{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
		},
	}
	if claims.ExpiresAt != nil {
		tc.expires = claims.ExpiresAt.Time
	}
	return tc, true
}

// expired reports whether the token is a JWT whose exp lies before now.
func (tc tokenClaims) expired(now time.Time) bool {
	return !tc.expires.IsZero() && !now.Before(tc.expires)
}
