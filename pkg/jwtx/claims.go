package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIDTokenTTL is the lifetime of issued ID tokens.
const DefaultIDTokenTTL = time.Hour

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrAlgorithm  = errors.New("jwtx: algorithm mismatch")
	ErrInvalid    = errors.New("jwtx: invalid token")
)

// IDTokenClaims is the claim set of an OpenID Connect ID token.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Nonce string `json:"nonce,omitempty"`
}

// NewIDTokenClaims builds {iss, sub, aud, iat, exp, nonce}. The audience is a
// single client id.
func NewIDTokenClaims(issuer, subject, audience, nonce string, ttl time.Duration, now time.Time) IDTokenClaims {
	if ttl <= 0 {
		ttl = DefaultIDTokenTTL
	}
	now = now.UTC().Truncate(time.Second)

	return IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Nonce: nonce,
	}
}
