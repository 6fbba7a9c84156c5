package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/idx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

const (
	defaultUserDisplayName = "Passkey"
	resumePath             = "/authorize/resume"
)

type WebAuthnConfig struct {
	RPID             string
	RPName           string
	Origins          []string
	ChallengeTimeout time.Duration

	// StrictSignCount rejects assertions whose counter did not increase.
	StrictSignCount bool
}

// CeremonyResult describes a completed registration or authentication.
// Redirect is set when the ceremony was bound to an authorization
// transaction.
type CeremonyResult struct {
	UserID   string
	TxnID    string
	Redirect string
}

// ceremonyEnvelope carries the optional fields sent next to the standard
// WebAuthn credential JSON.
type ceremonyEnvelope struct {
	Txn  string `json:"txn"`
	Name string `json:"name"`
}

// ceremonyState is kept with the challenge between options and verify.
type ceremonyState struct {
	Session      webauthn.SessionData `json:"session"`
	DisplayName  string               `json:"displayName,omitempty"`
	ExistingUser bool                 `json:"existingUser,omitempty"`
}

var credentialParameters = []protocol.CredentialParameter{
	{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
	{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
}

// WebAuthnService runs the passkey ceremonies. Challenges come from the
// ChallengeStore so they are single use and bound to the browser session;
// go-webauthn does the attestation and assertion verification.
type WebAuthnService struct {
	Store        store.Store
	Sessions     *SessionStore
	Challenges   *ChallengeStore
	Transactions *TransactionStore
	Metrics      *Metrics
	Now          func() time.Time

	strictSignCount bool
	wa              *webauthn.WebAuthn
}

func NewWebAuthnService(
	cfg WebAuthnConfig,
	st store.Store,
	sessions *SessionStore,
	challenges *ChallengeStore,
	txns *TransactionStore,
	metrics *Metrics,
) (*WebAuthnService, error) {
	timeout := cfg.ChallengeTimeout
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPID:                  cfg.RPID,
		RPDisplayName:         cfg.RPName,
		RPOrigins:             cfg.Origins,
		AttestationPreference: protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			RequireResidentKey: protocol.ResidentKeyRequired(),
			ResidentKey:        protocol.ResidentKeyRequirementRequired,
			UserVerification:   protocol.VerificationPreferred,
		},
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    timeout,
				TimeoutUVD: timeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    timeout,
				TimeoutUVD: timeout,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}

	return &WebAuthnService{
		Store:           st,
		Sessions:        sessions,
		Challenges:      challenges,
		Transactions:    txns,
		Metrics:         metrics,
		Now:             time.Now,
		strictSignCount: cfg.StrictSignCount,
		wa:              wa,
	}, nil
}

// RegistrationOptions starts account creation. A fresh user id is reserved
// in the challenge slot and only persisted once the attestation verifies.
func (s *WebAuthnService) RegistrationOptions(ctx context.Context, sess *Session, txnID, displayName string) (*protocol.CredentialCreation, error) {
	if err := s.checkTxn(sess, txnID); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = defaultUserDisplayName
	}

	userID := uuid.NewString()
	user := &webauthnUser{id: userID, name: "passkey_" + userID[:8], displayName: displayName}

	return s.beginRegistration(sess, txnID, user, ceremonyState{DisplayName: displayName})
}

// PasskeyOptions starts adding another passkey to the signed-in user.
// Already registered credentials are excluded.
func (s *WebAuthnService) PasskeyOptions(ctx context.Context, sess *Session, displayName string) (*protocol.CredentialCreation, error) {
	if !sess.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	user, err := s.loadUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if displayName != "" {
		user.displayName = displayName
	}

	return s.beginRegistration(sess, "", user, ceremonyState{DisplayName: user.displayName, ExistingUser: true})
}

func (s *WebAuthnService) beginRegistration(sess *Session, txnID string, user *webauthnUser, state ceremonyState) (*protocol.CredentialCreation, error) {
	c, raw, err := s.newChallenge(sess, domain.ChallengeRegistration, txnID, user.id)
	if err != nil {
		return nil, err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(user.creds))
	for _, cred := range user.creds {
		exclusions = append(exclusions, cred.Descriptor())
	}

	creation, wsess, err := s.wa.BeginRegistration(user,
		webauthn.WithExclusions(exclusions),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
		webauthn.WithCredentialParameters(credentialParameters),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			RequireResidentKey: protocol.ResidentKeyRequired(),
			ResidentKey:        protocol.ResidentKeyRequirementRequired,
			UserVerification:   protocol.VerificationPreferred,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	creation.Response.Challenge = protocol.URLEncodedBase64(raw)
	wsess.Challenge = c.Value
	state.Session = *wsess

	if err := s.attach(sess, domain.ChallengeRegistration, c.Value, state); err != nil {
		return nil, err
	}
	return creation, nil
}

// VerifyRegistration checks an attestation. For a new account it creates the
// user and credential and signs the session in; for a signed-in user it adds
// the credential.
func (s *WebAuthnService) VerifyRegistration(ctx context.Context, sess *Session, body []byte) (*CeremonyResult, error) {
	res, err := s.verifyRegistration(ctx, sess, body)
	s.Metrics.ceremony(CeremonyRegistration, err)
	return res, err
}

func (s *WebAuthnService) verifyRegistration(ctx context.Context, sess *Session, body []byte) (*CeremonyResult, error) {
	log := slogx.FromContext(ctx)

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(body))
	if err != nil {
		log.Info("unparseable attestation", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	c, err := s.Challenges.ValidateAndConsume(sess.ID, domain.ChallengeRegistration, parsed.Response.CollectedClientData.Challenge)
	if err != nil {
		return nil, err
	}
	var state ceremonyState
	if err := json.Unmarshal(c.CeremonyData, &state); err != nil {
		return nil, ErrChallengeExpired
	}

	var user *webauthnUser
	if state.ExistingUser {
		if !sess.IsAuthenticated() || sess.UserID != c.UserHandle {
			return nil, ErrUnauthenticated
		}
		if user, err = s.loadUser(ctx, c.UserHandle); err != nil {
			return nil, err
		}
	} else {
		user = &webauthnUser{id: c.UserHandle, name: "passkey_" + c.UserHandle[:8], displayName: state.DisplayName}
	}

	cred, err := s.wa.CreateCredential(user, state.Session, parsed)
	if err != nil {
		log.Warn("attestation verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	now := s.Now().UTC()
	record := credentialFromWebAuthn(user.id, cred, env.Name, now)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if !state.ExistingUser {
			if err := tx.Users().CreateUser(ctx, domain.User{
				ID:          user.id,
				DisplayName: state.DisplayName,
				CreatedAt:   now,
				LastLoginAt: &now,
			}); err != nil {
				return err
			}
		}
		return tx.Credentials().CreateCredential(ctx, record)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: credential already registered", ErrVerificationFailed)
		}
		return nil, fmt.Errorf("store credential: %w", err)
	}

	log.Info("passkey registered", "user_id", user.id, "credential", record.ID, "new_account", !state.ExistingUser)

	if state.ExistingUser {
		return &CeremonyResult{UserID: user.id}, nil
	}
	return s.complete(ctx, sess, user.id, firstNonEmpty(c.ExternalTxnID, env.Txn))
}

// AuthenticationOptions starts a discoverable (usernameless) login.
func (s *WebAuthnService) AuthenticationOptions(ctx context.Context, sess *Session, txnID string) (*protocol.CredentialAssertion, error) {
	if err := s.checkTxn(sess, txnID); err != nil {
		return nil, err
	}

	c, raw, err := s.newChallenge(sess, domain.ChallengeAuthentication, txnID, "")
	if err != nil {
		return nil, err
	}

	assertion, wsess, err := s.wa.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationPreferred))
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}

	assertion.Response.Challenge = protocol.URLEncodedBase64(raw)
	wsess.Challenge = c.Value

	if err := s.attach(sess, domain.ChallengeAuthentication, c.Value, ceremonyState{Session: *wsess}); err != nil {
		return nil, err
	}
	return assertion, nil
}

// VerifyAuthentication checks an assertion, records the credential use and
// signs the session in.
func (s *WebAuthnService) VerifyAuthentication(ctx context.Context, sess *Session, body []byte) (*CeremonyResult, error) {
	res, err := s.verifyAuthentication(ctx, sess, body)
	s.Metrics.ceremony(CeremonyAuthentication, err)
	return res, err
}

func (s *WebAuthnService) verifyAuthentication(ctx context.Context, sess *Session, body []byte) (*CeremonyResult, error) {
	log := slogx.FromContext(ctx)

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(body))
	if err != nil {
		log.Info("unparseable assertion", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	c, err := s.Challenges.ValidateAndConsume(sess.ID, domain.ChallengeAuthentication, parsed.Response.CollectedClientData.Challenge)
	if err != nil {
		return nil, err
	}
	var state ceremonyState
	if err := json.Unmarshal(c.CeremonyData, &state); err != nil {
		return nil, ErrChallengeExpired
	}

	stored, err := s.Store.Credentials().GetCredentialByCredentialID(ctx, parsed.RawID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("assertion for unknown credential")
			return nil, ErrVerificationFailed
		}
		return nil, err
	}

	var user *webauthnUser
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		if string(userHandle) != stored.UserID {
			return nil, errors.New("user handle does not own credential")
		}
		u, err := s.loadUser(ctx, stored.UserID)
		if err != nil {
			return nil, err
		}
		user = u
		return u, nil
	}

	cred, err := s.wa.ValidateDiscoverableLogin(handler, state.Session, parsed)
	if err != nil {
		log.Warn("assertion verification failed", "error", err, "credential", stored.ID)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	newCount := parsed.Response.AuthenticatorData.Counter
	if signCountAnomaly(newCount, stored.SignCount) || cred.Authenticator.CloneWarning {
		s.Metrics.signCountAnomaly()
		log.Warn("sign count anomaly",
			"credential", stored.ID, "user_id", stored.UserID,
			"stored", stored.SignCount, "received", newCount, "strict", s.strictSignCount)
		if s.strictSignCount {
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, ErrSignCountAnomaly)
		}
		newCount = max(newCount, stored.SignCount)
	}

	now := s.Now().UTC()
	backupState := parsed.Response.AuthenticatorData.Flags.HasBackupState()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().UpdateCredentialUsage(ctx, stored.ID, newCount, backupState, now); err != nil {
			return err
		}
		return tx.Users().UpdateLastLogin(ctx, user.id, now)
	})
	if err != nil {
		return nil, fmt.Errorf("record credential use: %w", err)
	}

	log.Info("passkey authentication succeeded", "user_id", user.id, "credential", stored.ID)
	return s.complete(ctx, sess, user.id, firstNonEmpty(c.ExternalTxnID, env.Txn))
}

// complete signs the session in and binds the pending transaction, if any.
func (s *WebAuthnService) complete(ctx context.Context, sess *Session, userID, txnID string) (*CeremonyResult, error) {
	if _, err := s.Sessions.Authenticate(sess.ID, userID); err != nil {
		return nil, err
	}
	res := &CeremonyResult{UserID: userID}
	if txnID == "" {
		return res, nil
	}

	if _, err := s.Transactions.Authenticate(sess.ID, txnID, userID); err != nil {
		if errors.Is(err, ErrStateConflict) {
			slogx.FromContext(ctx).Warn("transaction already bound to another user", "txn", txnID, "user_id", userID)
		}
		return nil, err
	}
	res.TxnID = txnID
	res.Redirect = resumePath + "?" + url.Values{"txn": {txnID}}.Encode()
	return res, nil
}

func (s *WebAuthnService) checkTxn(sess *Session, txnID string) error {
	if txnID == "" {
		return nil
	}
	_, err := s.Transactions.Get(sess.ID, txnID)
	return err
}

func (s *WebAuthnService) newChallenge(sess *Session, kind domain.ChallengeKind, txnID, userHandle string) (domain.Challenge, []byte, error) {
	c, err := s.Challenges.Generate(sess.ID, kind, txnID, userHandle)
	if err != nil {
		return domain.Challenge{}, nil, fmt.Errorf("generate challenge: %w", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return domain.Challenge{}, nil, fmt.Errorf("decode challenge: %w", err)
	}
	return c, raw, nil
}

func (s *WebAuthnService) attach(sess *Session, kind domain.ChallengeKind, value string, state ceremonyState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode ceremony state: %w", err)
	}
	return s.Challenges.Attach(sess.ID, kind, value, data)
}

func (s *WebAuthnService) loadUser(ctx context.Context, userID string) (*webauthnUser, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	creds, err := s.Store.Credentials().ListCredentialsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	wu := &webauthnUser{
		id:          u.ID,
		name:        "passkey_" + u.ID[:8],
		displayName: u.DisplayName,
		creds:       make([]webauthn.Credential, len(creds)),
	}
	for i := range creds {
		wu.creds[i] = credentialToWebAuthn(creds[i])
	}
	return wu, nil
}

// signCountAnomaly holds when a counter that is in use failed to increase.
func signCountAnomaly(received, stored uint32) bool {
	return (received != 0 || stored != 0) && received <= stored
}

func decodeEnvelope(body []byte) (ceremonyEnvelope, error) {
	var env ceremonyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("%w: malformed body", ErrInvalidRequest)
	}
	return env, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// webauthnUser adapts a stored user to webauthn.User. The handle is the
// UUID string itself.
type webauthnUser struct {
	id          string
	name        string
	displayName string
	creds       []webauthn.Credential
}

func (u *webauthnUser) WebAuthnID() []byte                         { return []byte(u.id) }
func (u *webauthnUser) WebAuthnName() string                       { return u.name }
func (u *webauthnUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func credentialFromWebAuthn(userID string, wc *webauthn.Credential, name string, now time.Time) domain.Credential {
	transports := make([]string, len(wc.Transport))
	for i, t := range wc.Transport {
		transports[i] = string(t)
	}
	return domain.Credential{
		ID:              idx.New().String(),
		UserID:          userID,
		CredentialID:    wc.ID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		AAGUID:          wc.Authenticator.AAGUID,
		SignCount:       wc.Authenticator.SignCount,
		Transports:      transports,
		UserPresent:     wc.Flags.UserPresent,
		UserVerified:    wc.Flags.UserVerified,
		BackupEligible:  wc.Flags.BackupEligible,
		BackupState:     wc.Flags.BackupState,
		Name:            name,
		CreatedAt:       now,
	}
}

func credentialToWebAuthn(c domain.Credential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, len(c.Transports))
	for i, t := range c.Transports {
		transports[i] = protocol.AuthenticatorTransport(t)
	}
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.UserPresent,
			UserVerified:   c.UserVerified,
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    c.AAGUID,
			SignCount: c.SignCount,
		},
	}
}
