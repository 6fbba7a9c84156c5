package jwtx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
	"github.com/aussiebroadwan/nullprofile/pkg/idx"
)

// KeyManager owns the active signing key and the published key set.
type KeyManager struct {
	mu     sync.RWMutex
	signer *Signer
	keys   *KeySet
}

// KeyManagerOptions configures key generation.
type KeyManagerOptions struct {
	// Algorithm is one of RS256, ES256 or EdDSA.
	Algorithm string

	// RSABits only applies to RS256. Defaults to 2048.
	RSABits int
}

// NewEphemeralKeyManager generates a fresh key in memory. Tokens signed by a
// previous process can no longer be verified after a restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	signer, _, err := generateSigner(opts)
	if err != nil {
		return nil, err
	}

	km := &KeyManager{keys: NewKeySet()}
	if err := km.activate(signer); err != nil {
		return nil, err
	}
	return km, nil
}

// Signer returns the active signer.
func (km *KeyManager) Signer() *Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.signer
}

func (km *KeyManager) KeySet() *KeySet { return km.keys }

func (km *KeyManager) Algorithm() string {
	if s := km.Signer(); s != nil {
		return s.Alg()
	}
	return ""
}

// IsReady reports whether a signer is loaded.
func (km *KeyManager) IsReady() bool {
	return km.Signer() != nil
}

func (km *KeyManager) activate(s *Signer) error {
	if err := km.keys.AddSigner(s); err != nil {
		return err
	}
	km.mu.Lock()
	km.signer = s
	km.mu.Unlock()
	return nil
}

// generateSigner returns a signer under a new kid plus the PEM of its key.
func generateSigner(opts KeyManagerOptions) (*Signer, []byte, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}

	key, err := cryptox.GenerateSigningKey(opts.Algorithm, opts.RSABits)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: generate %s key: %w", opts.Algorithm, err)
	}
	pemData, err := cryptox.MarshalPrivateKeyPEM(key)
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSigner(idx.New().String(), opts.Algorithm, key)
	if err != nil {
		return nil, nil, err
	}
	return signer, pemData, nil
}

// SigningKeyRecord is a stored signing key with its private half sealed by
// the key encrypter.
type SigningKeyRecord struct {
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
}

// KeyStore is what the persistent manager needs from storage.
type KeyStore interface {
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures NewPersistentKeyManager.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store     KeyStore
	Encrypter *cryptox.KeyEncrypter
	Now       func() time.Time
}

// NewPersistentKeyManager loads the stored keys. Every non-retired key is
// published; the newest one with the configured algorithm signs. When none
// exists a key is generated, sealed and stored.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: key store is required")
	}
	if opts.Encrypter == nil {
		return nil, errors.New("jwtx: key encrypter is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmRS256
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	records, err := opts.Store.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: list signing keys: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	km := &KeyManager{keys: NewKeySet()}
	var active *Signer

	for _, rec := range records {
		if rec.RetiredAt != nil {
			continue
		}

		pemData, err := opts.Encrypter.Decrypt(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decrypt key %s: %w", rec.Kid, err)
		}
		key, err := cryptox.ParsePrivateKeyPEM(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse key %s: %w", rec.Kid, err)
		}
		signer, err := NewSigner(rec.Kid, rec.Algorithm, key)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}
		if err := km.keys.AddSigner(signer); err != nil {
			return nil, err
		}
		if rec.Algorithm == opts.Algorithm {
			active = signer
		}
	}

	if active == nil {
		signer, pemData, err := generateSigner(opts.KeyManagerOptions)
		if err != nil {
			return nil, err
		}
		sealed, err := opts.Encrypter.Encrypt(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: seal key: %w", err)
		}
		err = opts.Store.CreateSigningKey(ctx, SigningKeyRecord{
			Kid:                 signer.KID(),
			Algorithm:           signer.Alg(),
			PrivateKeyEncrypted: sealed,
			CreatedAt:           opts.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("jwtx: store key: %w", err)
		}
		active = signer
	}

	if err := km.activate(active); err != nil {
		return nil, err
	}
	return km, nil
}
