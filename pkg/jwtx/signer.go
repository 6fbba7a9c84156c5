package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWS algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer signs JWTs with one private key under a fixed kid.
type Signer struct {
	kid    string
	alg    string
	method jwt.SigningMethod
	key    crypto.Signer
}

// NewSigner pairs a private key with its algorithm. The key type must match
// the algorithm.
func NewSigner(kid, alg string, key crypto.Signer) (*Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}
	if key == nil {
		return nil, errors.New("jwtx: nil signing key")
	}

	var method jwt.SigningMethod
	switch alg {
	case AlgorithmRS256:
		if _, ok := key.(*rsa.PrivateKey); !ok {
			return nil, fmt.Errorf("%w: RS256 needs an RSA key, got %T", ErrAlgorithm, key)
		}
		method = jwt.SigningMethodRS256
	case AlgorithmES256:
		ek, ok := key.(*ecdsa.PrivateKey)
		if !ok || ek.Curve.Params().BitSize != 256 {
			return nil, fmt.Errorf("%w: ES256 needs a P-256 key", ErrAlgorithm)
		}
		method = jwt.SigningMethodES256
	case AlgorithmEdDSA:
		if _, ok := key.(ed25519.PrivateKey); !ok {
			return nil, fmt.Errorf("%w: EdDSA needs an Ed25519 key, got %T", ErrAlgorithm, key)
		}
		method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}

	return &Signer{kid: kid, alg: alg, method: method, key: key}, nil
}

func (s *Signer) KID() string                { return s.kid }
func (s *Signer) Alg() string                { return s.alg }
func (s *Signer) PublicKey() crypto.PublicKey { return s.key.Public() }

// Sign serialises claims as a compact JWS with the kid header set.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
