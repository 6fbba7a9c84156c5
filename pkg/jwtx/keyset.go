package jwtx

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

type publicKey struct {
	alg string
	key any
}

// KeySet holds the public halves of the signing keys. It backs both the
// published JWKS and local verification.
type KeySet struct {
	mu   sync.RWMutex
	set  jwk.Set
	keys map[string]publicKey
}

func NewKeySet() *KeySet {
	return &KeySet{
		set:  jwk.NewSet(),
		keys: make(map[string]publicKey),
	}
}

// AddSigner publishes the signer's public key.
func (k *KeySet) AddSigner(s *Signer) error {
	pub, err := jwk.FromRaw(s.PublicKey())
	if err != nil {
		return fmt.Errorf("jwtx: build jwk: %w", err)
	}
	if err := pub.Set(jwk.KeyIDKey, s.KID()); err != nil {
		return err
	}
	if err := pub.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(s.Alg())); err != nil {
		return err
	}
	if err := pub.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[s.KID()]; exists {
		return nil
	}
	if err := k.set.AddKey(pub); err != nil {
		return fmt.Errorf("jwtx: add jwk: %w", err)
	}
	k.keys[s.KID()] = publicKey{alg: s.Alg(), key: s.PublicKey()}
	return nil
}

// Len reports the number of published keys.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// MarshalJSON renders {"keys":[...]}.
func (k *KeySet) MarshalJSON() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return json.Marshal(k.set)
}

// Verify checks signature, issuer, audience and expiry of an ID token signed
// by one of the keys in the set.
func (k *KeySet) Verify(token, issuer, audience string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)

		k.mu.RLock()
		pk, ok := k.keys[kid]
		k.mu.RUnlock()

		if !ok {
			return nil, ErrUnknownKID
		}
		if t.Method.Alg() != pk.alg {
			return nil, ErrAlgorithm
		}
		return pk.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return claims, nil
}
