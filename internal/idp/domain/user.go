package domain

import "time"

// User is an account. ID is the canonical UUID string; it doubles as the
// WebAuthn user handle and the pairwise subject input.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	LastLoginAt *time.Time
}
