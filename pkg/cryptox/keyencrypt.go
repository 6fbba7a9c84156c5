package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const keyWrapInfo = "nullprofile/signing-key-wrap/v1"

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// KeyEncrypter seals signing keys at rest with AES-256-GCM. The AES key is
// derived from the master secret with HKDF-SHA256.
type KeyEncrypter struct {
	aead cipher.AEAD
}

// NewKeyEncrypter derives the wrapping key from secret. The secret must not
// be empty.
func NewKeyEncrypter(secret []byte) (*KeyEncrypter, error) {
	if len(secret) == 0 {
		return nil, errors.New("cryptox: empty master secret")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyWrapInfo)), key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &KeyEncrypter{aead: aead}, nil
}

// LoadMasterSecret reads the master secret from path when set, otherwise
// from the fallback value (usually an environment variable). Surrounding
// whitespace in files is ignored.
func LoadMasterSecret(path, fallback string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cryptox: read master key file: %w", err)
		}
		data = []byte(strings.TrimSpace(string(data)))
		if len(data) == 0 {
			return nil, fmt.Errorf("cryptox: master key file %s is empty", path)
		}
		return data, nil
	}
	if fallback == "" {
		return nil, errors.New("cryptox: no master secret configured")
	}
	return []byte(fallback), nil
}

// Encrypt returns nonce || ciphertext || tag.
func (e *KeyEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	nonce, err := RandomBytes(e.aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt and authenticates the payload.
func (e *KeyEncrypter) Decrypt(data []byte) ([]byte, error) {
	n := e.aead.NonceSize()
	if len(data) < n+e.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := e.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decrypt: %w", err)
	}
	return plaintext, nil
}
