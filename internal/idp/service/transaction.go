package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
	"github.com/segmentio/ksuid"
)

const (
	DefaultCodeValidity   = 300 * time.Second
	DefaultSessionTimeout = 1800 * time.Second
)

// codeEntry is the session independent index used by the token endpoint.
type codeEntry struct {
	sessionID string
	txn       *domain.Transaction
	expiresAt time.Time
	consumed  bool
}

// TransactionStore owns the authorization transaction lifecycle. Transactions
// are reachable only through the session that created them; issued codes are
// additionally indexed by their plaintext so they can be redeemed without
// the session.
type TransactionStore struct {
	CodeValidity   time.Duration
	SessionTimeout time.Duration
	Now            func() time.Time

	mu       sync.Mutex
	sessions map[string]map[string]*domain.Transaction
	codes    map[string]*codeEntry
}

func NewTransactionStore(codeValidity, sessionTimeout time.Duration) *TransactionStore {
	if codeValidity <= 0 {
		codeValidity = DefaultCodeValidity
	}
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	return &TransactionStore{
		CodeValidity:   codeValidity,
		SessionTimeout: sessionTimeout,
		Now:            time.Now,
		sessions:       make(map[string]map[string]*domain.Transaction),
		codes:          make(map[string]*codeEntry),
	}
}

// Create starts a transaction for sessionID. It begins in AUTHENTICATING
// when a ceremony is needed and CREATED otherwise.
func (s *TransactionStore) Create(sessionID string, params domain.AuthorizationParams, authnRequired bool) *domain.Transaction {
	txn := &domain.Transaction{
		ID:                  ksuid.New().String(),
		AuthorizationParams: params,
		RequestedAt:         s.Now(),
		AuthnRequired:       authnRequired,
		Status:              domain.TxnCreated,
	}
	if authnRequired {
		txn.Status = domain.TxnAuthenticating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.sessions[sessionID]
	if !ok {
		owned = make(map[string]*domain.Transaction)
		s.sessions[sessionID] = owned
	}
	owned[txn.ID] = txn
	return txn.Clone()
}

// Get returns a copy of the transaction if sessionID owns it. A transaction
// whose code timed out before the sweep reports EXPIRED.
func (s *TransactionStore) Get(sessionID, txnID string) (*domain.Transaction, error) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.sessions[sessionID][txnID]
	if !ok {
		return nil, ErrTransactionNotFound
	}

	cp := txn.Clone()
	if cp.Status == domain.TxnCodeIssued && !now.Before(*cp.AuthCodeExpiresAt) {
		cp.Status = domain.TxnExpired
	}
	return cp, nil
}

// Authenticate binds userID to the transaction. Binding the same user again
// is a no-op; binding a different user fails with ErrStateConflict.
func (s *TransactionStore) Authenticate(sessionID, txnID, userID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.sessions[sessionID][txnID]
	if !ok {
		return nil, ErrTransactionNotFound
	}

	if txn.AuthenticatedUserID != "" {
		if txn.AuthenticatedUserID != userID {
			return nil, ErrStateConflict
		}
		return txn.Clone(), nil
	}

	switch txn.Status {
	case domain.TxnCreated, domain.TxnAuthenticating:
	default:
		return nil, ErrStateConflict
	}

	txn.AuthenticatedUserID = userID
	txn.AuthnRequired = false
	txn.Status = domain.TxnAuthenticated
	return txn.Clone(), nil
}

// IssueAuthorizationCode mints the one-time code for an AUTHENTICATED
// transaction. Only the SHA-256 of the code is kept on the transaction; the
// plaintext is returned once and indexed for redemption.
func (s *TransactionStore) IssueAuthorizationCode(sessionID, txnID string) (string, error) {
	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	expiresAt := s.Now().Add(s.CodeValidity)

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.sessions[sessionID][txnID]
	if !ok {
		return "", ErrTransactionNotFound
	}
	if txn.Status != domain.TxnAuthenticated || !txn.IsAuthenticated() {
		return "", ErrStateConflict
	}

	txn.AuthCodeHash = cryptox.FingerprintToken(code)
	txn.AuthCodeExpiresAt = &expiresAt
	txn.Status = domain.TxnCodeIssued

	s.codes[code] = &codeEntry{
		sessionID: sessionID,
		txn:       txn.Clone(),
		expiresAt: expiresAt,
	}
	return code, nil
}

// Redeem consumes code and returns the transaction snapshot taken at
// issuance. Unknown, consumed and expired codes all fail with
// ErrInvalidGrant. The whole check-and-consume runs under one lock.
func (s *TransactionStore) Redeem(code string) (*domain.Transaction, error) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[code]
	if !ok {
		return nil, ErrInvalidGrant
	}
	if entry.consumed || !now.Before(entry.expiresAt) {
		delete(s.codes, code)
		return nil, ErrInvalidGrant
	}

	entry.consumed = true
	delete(s.codes, code)
	s.removeTxn(entry.sessionID, entry.txn.ID)

	snap := entry.txn.Clone()
	snap.AuthCodeHash = ""
	snap.AuthCodeExpiresAt = nil
	snap.Status = domain.TxnRedeemed
	return snap, nil
}

// ValidatePKCE checks verifier against the S256 challenge of txn in
// constant time.
func (s *TransactionStore) ValidatePKCE(txn *domain.Transaction, verifier string) bool {
	if txn == nil || verifier == "" || txn.CodeChallengeMethod != PKCEMethodS256 {
		return false
	}
	return cryptox.EqualStrings(cryptox.FingerprintToken(verifier), txn.CodeChallenge)
}

// DestroySession drops every transaction owned by sessionID. Codes already
// issued stay redeemable.
func (s *TransactionStore) DestroySession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}

// Sweep removes expired code entries, transactions whose code expired and
// transactions older than the session timeout. It returns the number of
// codes and transactions removed.
func (s *TransactionStore) Sweep(now time.Time) (codes, txns int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, entry := range s.codes {
		if !now.Before(entry.expiresAt) {
			delete(s.codes, code)
			codes++
		}
	}

	cutoff := now.Add(-s.SessionTimeout)
	for sid, owned := range s.sessions {
		for id, txn := range owned {
			codeExpired := txn.AuthCodeExpiresAt != nil && !now.Before(*txn.AuthCodeExpiresAt)
			if codeExpired || !txn.RequestedAt.After(cutoff) {
				delete(owned, id)
				txns++
			}
		}
		if len(owned) == 0 {
			delete(s.sessions, sid)
		}
	}
	return codes, txns
}

// removeTxn must be called with mu held.
func (s *TransactionStore) removeTxn(sessionID, txnID string) {
	owned := s.sessions[sessionID]
	delete(owned, txnID)
	if len(owned) == 0 {
		delete(s.sessions, sessionID)
	}
}
