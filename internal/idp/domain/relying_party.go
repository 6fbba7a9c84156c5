package domain

import "time"

const (
	RelyingPartyStatusActive   = "ACTIVE"
	RelyingPartyStatusDisabled = "DISABLED"
)

// RelyingParty is a registered OIDC client. RPID is the public client_id.
type RelyingParty struct {
	ID              string
	RPID            string
	Name            string
	SectorID        string
	LogoURL         string
	PrimaryColor    string
	SecondaryColor  string
	Status          string
	CreatedByUserID string // empty for parties seeded from the CLI
	CreatedAt       time.Time
	UpdatedAt       time.Time

	RedirectURIs []string
}

func (rp *RelyingParty) IsActive() bool {
	return rp.Status == RelyingPartyStatusActive
}

// HasRedirectURI reports an exact string match. No prefix or wildcard
// matching.
func (rp *RelyingParty) HasRedirectURI(uri string) bool {
	for _, u := range rp.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
