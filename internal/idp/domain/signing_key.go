package domain

import "time"

// SigningKey is an ID token signing key with its private half encrypted at
// rest.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
}
