package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

const (
	authorizeResultCode  = "code"
	authorizeResultLogin = "login"
	authorizeResultError = "error"
)

// AuthorizeService runs the authorization endpoint: validate, open a
// transaction, then either issue a code or hand off to the login page.
type AuthorizeService struct {
	Validator      *AuthorizationRequestValidator
	Transactions   *TransactionStore
	RelyingParties RelyingPartyLookup
	LoginURL       string
	Metrics        *Metrics
}

// Authorize returns the Location for a 302. A *ValidationError is returned
// when the error cannot be delivered to the client's redirect URI.
func (s *AuthorizeService) Authorize(ctx context.Context, sess *Session, req AuthorizationRequest) (string, error) {
	log := slogx.FromContext(ctx)

	result, err := s.Validator.Validate(ctx, req)
	if err != nil {
		return "", err
	}
	if !result.OK() {
		s.Metrics.authorize(authorizeResultError)
		if result.Err.Redirectable() {
			return ErrorRedirectURL(result.Err.RedirectURI, result.Err.Code, result.Err.Description, result.Err.State)
		}
		return "", result.Err
	}

	vr := result.Request
	authnRequired := !sess.IsAuthenticated() || vr.ForceLogin
	txn := s.Transactions.Create(sess.ID, vr.AuthorizationParams, authnRequired)
	log.Info("authorization transaction created",
		"txn", txn.ID, "client_id", vr.ClientID, "authn_required", authnRequired)

	if authnRequired {
		s.Metrics.authorize(authorizeResultLogin)
		return s.loginRedirect(txn.ID)
	}

	if _, err := s.Transactions.Authenticate(sess.ID, txn.ID, sess.UserID); err != nil {
		return "", err
	}
	return s.issue(ctx, sess, txn.ID)
}

// Resume continues a transaction after a WebAuthn ceremony. A transaction
// that is still unauthenticated goes back to the login page.
func (s *AuthorizeService) Resume(ctx context.Context, sess *Session, txnID string) (string, error) {
	txn, err := s.Transactions.Get(sess.ID, txnID)
	if err != nil {
		return "", err
	}

	switch txn.Status {
	case domain.TxnAuthenticated:
		return s.issue(ctx, sess, txn.ID)
	case domain.TxnCreated, domain.TxnAuthenticating:
		if !txn.AuthnRequired && sess.IsAuthenticated() {
			if _, err := s.Transactions.Authenticate(sess.ID, txn.ID, sess.UserID); err != nil {
				return "", err
			}
			return s.issue(ctx, sess, txn.ID)
		}
		s.Metrics.authorize(authorizeResultLogin)
		return s.loginRedirect(txn.ID)
	default:
		return "", ErrStateConflict
	}
}

func (s *AuthorizeService) issue(ctx context.Context, sess *Session, txnID string) (string, error) {
	code, err := s.Transactions.IssueAuthorizationCode(sess.ID, txnID)
	if err != nil {
		return "", err
	}
	txn, err := s.Transactions.Get(sess.ID, txnID)
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("authorization code issued", "txn", txnID, "client_id", txn.ClientID)
	s.Metrics.authorize(authorizeResultCode)

	u, err := url.Parse(txn.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	if txn.State != "" {
		q.Set("state", txn.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *AuthorizeService) loginRedirect(txnID string) (string, error) {
	u, err := url.Parse(s.LoginURL)
	if err != nil {
		return "", fmt.Errorf("parse login url: %w", err)
	}
	q := u.Query()
	q.Set("txn", txnID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Branding is what the login page shows about the relying party.
type Branding struct {
	RPName         string
	DisplayName    string
	PrimaryColor   string
	SecondaryColor string
	LogoURL        string
}

// Branding resolves the relying party of a transaction owned by sess.
func (s *AuthorizeService) Branding(ctx context.Context, sess *Session, txnID string) (*Branding, error) {
	txn, err := s.Transactions.Get(sess.ID, txnID)
	if err != nil {
		return nil, ErrNotFound
	}

	rp, err := s.RelyingParties.GetRelyingPartyByRPID(ctx, txn.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Branding{
		RPName:         rp.Name,
		DisplayName:    rp.Name,
		PrimaryColor:   rp.PrimaryColor,
		SecondaryColor: rp.SecondaryColor,
		LogoURL:        rp.LogoURL,
	}, nil
}

// ErrorRedirectURL appends an OAuth2 error to a verified redirect URI.
func ErrorRedirectURL(redirectURI, code, description, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	q := u.Query()
	q.Set("error", code)
	if description != "" {
		q.Set("error_description", description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
