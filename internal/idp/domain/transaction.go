package domain

import "time"

// TxnState is the lifecycle position of an authorization transaction.
type TxnState string

const (
	TxnCreated        TxnState = "CREATED"
	TxnAuthenticating TxnState = "AUTHENTICATING"
	TxnAuthenticated  TxnState = "AUTHENTICATED"
	TxnCodeIssued     TxnState = "CODE_ISSUED"
	TxnRedeemed       TxnState = "REDEEMED"
	TxnExpired        TxnState = "EXPIRED"
)

// AuthorizationParams are the validated values of an authorization request.
type AuthorizationParams struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Transaction is one in-flight authorization attempt, owned by the browser
// session that created it.
type Transaction struct {
	ID string
	AuthorizationParams

	RequestedAt         time.Time
	AuthnRequired       bool
	AuthenticatedUserID string
	AuthCodeHash        string
	AuthCodeExpiresAt   *time.Time
	Status              TxnState
}

// IsAuthenticated holds once a user is bound and no further login is needed.
func (t *Transaction) IsAuthenticated() bool {
	return t.AuthenticatedUserID != "" && !t.AuthnRequired
}

// Clone returns a deep copy so snapshots never alias live state.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.AuthCodeExpiresAt != nil {
		exp := *t.AuthCodeExpiresAt
		cp.AuthCodeExpiresAt = &exp
	}
	return &cp
}
