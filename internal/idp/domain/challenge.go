package domain

import "time"

// ChallengeKind selects one of the two slots of a ceremony context.
type ChallengeKind string

const (
	ChallengeRegistration   ChallengeKind = "registration"
	ChallengeAuthentication ChallengeKind = "authentication"
)

// Challenge is a single-use WebAuthn ceremony challenge.
type Challenge struct {
	Value         string // base64url, 32 random bytes
	ExpiresAt     time.Time
	ExternalTxnID string
	UserHandle    string

	// CeremonyData is opaque state the WebAuthn adapter keeps alongside the
	// challenge until verification.
	CeremonyData []byte
}

func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
