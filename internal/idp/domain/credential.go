package domain

import "time"

// DefaultPasskeyName is shown for credentials registered without a name.
const DefaultPasskeyName = "Unnamed Passkey"

// Credential is a registered WebAuthn public key credential.
type Credential struct {
	ID              string
	UserID          string
	CredentialID    []byte
	PublicKey       []byte // COSE encoded
	AttestationType string
	AAGUID          []byte
	SignCount       uint32
	Transports      []string

	// Flags captured at registration. Backup eligibility must not change
	// between ceremonies.
	UserPresent    bool
	UserVerified   bool
	BackupEligible bool
	BackupState    bool

	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// DisplayName falls back to DefaultPasskeyName.
func (c *Credential) DisplayName() string {
	if c.Name == "" {
		return DefaultPasskeyName
	}
	return c.Name
}
