package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrNonceMismatch = errors.New("authsdk: id token nonce mismatch")
	ErrInvalidToken  = errors.New("authsdk: invalid id token")
)

// IDToken is a verified ID token.
type IDToken struct {
	Issuer   string
	Subject  string
	Audience []string
	Nonce    string
	IssuedAt time.Time
	Expiry   time.Time
}

// IDTokenVerifier checks ID tokens for one relying party.
type IDTokenVerifier struct {
	keys     jwk.Set
	issuer   string
	clientID string
	skew     time.Duration
}

// NewIDTokenVerifier builds a verifier from an already fetched key set.
func NewIDTokenVerifier(keys jwk.Set, issuer, clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{keys: keys, issuer: issuer, clientID: clientID, skew: 30 * time.Second}
}

// NewIDTokenVerifier fetches discovery and the JWKS and returns a verifier
// for clientID.
func (c *SDKClient) NewIDTokenVerifier(ctx context.Context, clientID string) (*IDTokenVerifier, error) {
	doc, err := c.GetDiscovery(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery: %w", err)
	}
	keys, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	return NewIDTokenVerifier(keys, doc.Issuer, clientID), nil
}

// GetJWKS fetches and parses the provider's public keys.
func (c *SDKClient) GetJWKS(ctx context.Context) (jwk.Set, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp, http.StatusOK)
	if err != nil {
		return nil, err
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwks: %w", err)
	}
	return set, nil
}

// Verify checks signature, issuer, audience, expiry and, when expectedNonce
// is non-empty, the nonce.
func (v *IDTokenVerifier) Verify(token, expectedNonce string) (*IDToken, error) {
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKeySet(v.keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var nonce string
	if raw, ok := parsed.Get("nonce"); ok {
		nonce, _ = raw.(string)
	}
	if expectedNonce != "" && nonce != expectedNonce {
		return nil, ErrNonceMismatch
	}

	return &IDToken{
		Issuer:   parsed.Issuer(),
		Subject:  parsed.Subject(),
		Audience: parsed.Audience(),
		Nonce:    nonce,
		IssuedAt: parsed.IssuedAt(),
		Expiry:   parsed.Expiration(),
	}, nil
}
