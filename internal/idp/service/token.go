package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

const GrantTypeAuthorizationCode = "authorization_code"

// SignerSource hands out the active signing key. *jwtx.KeyManager
// satisfies it.
type SignerSource interface {
	Signer() *jwtx.Signer
}

// TokenIssuer builds and signs ID tokens.
type TokenIssuer struct {
	Issuer string
	TTL    time.Duration
	Keys   SignerSource
	Now    func() time.Time
}

func NewTokenIssuer(issuer string, keys SignerSource) *TokenIssuer {
	return &TokenIssuer{
		Issuer: issuer,
		TTL:    jwtx.DefaultIDTokenTTL,
		Keys:   keys,
		Now:    time.Now,
	}
}

// Issue signs {iss, sub, aud, iat, exp, nonce}.
func (i *TokenIssuer) Issue(sub, audience, nonce string) (string, error) {
	signer := i.Keys.Signer()
	if signer == nil {
		return "", errors.New("no active signing key")
	}
	claims := jwtx.NewIDTokenClaims(i.Issuer, sub, audience, nonce, i.TTL, i.Now())
	return signer.Sign(claims)
}

// TokenRequest is the form body of POST /token.
type TokenRequest struct {
	GrantType    string
	Code         string
	ClientID     string
	CodeVerifier string
	RedirectURI  string
}

type TokenResult struct {
	IDToken   string
	ExpiresIn int
}

// TokenService implements the authorization_code grant for public clients.
type TokenService struct {
	RelyingParties RelyingPartyLookup
	Transactions   *TransactionStore
	Pairwise       *PairwiseSubjectService
	Issuer         *TokenIssuer
	Metrics        *Metrics
}

// Exchange redeems a code for an ID token. Checks run in this order:
// grant type, required parameters, client, code redemption, then the
// binding of client, redirect URI and PKCE to the redeemed transaction. The
// code is consumed before the binding checks so a failed PKCE attempt burns
// it.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*TokenResult, error) {
	log := slogx.FromContext(ctx)

	res, err := s.exchange(ctx, log, req)
	if err != nil {
		s.Metrics.token(tokenResultLabel(err))
		return nil, err
	}
	s.Metrics.token(OutcomeSuccess)
	return res, nil
}

func (s *TokenService) exchange(ctx context.Context, log *slog.Logger, req TokenRequest) (*TokenResult, error) {
	if req.GrantType != GrantTypeAuthorizationCode {
		return nil, ErrUnsupportedGrantType
	}

	code := strings.TrimSpace(req.Code)
	clientID := strings.TrimSpace(req.ClientID)
	verifier := strings.TrimSpace(req.CodeVerifier)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if code == "" || clientID == "" || verifier == "" || redirectURI == "" {
		return nil, ErrInvalidRequest
	}

	rp, err := s.RelyingParties.GetRelyingPartyByRPID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("lookup relying party: %w", err)
	}
	if !rp.IsActive() {
		return nil, ErrInvalidClient
	}

	txn, err := s.Transactions.Redeem(code)
	if err != nil {
		log.Info("authorization code rejected", slog.String("client_id", clientID))
		return nil, err
	}

	if txn.ClientID != clientID {
		log.Warn("authorization code presented by another client",
			slog.String("client_id", clientID), slog.String("txn", txn.ID))
		return nil, ErrInvalidGrant
	}
	if txn.RedirectURI != redirectURI {
		log.Warn("redirect_uri mismatch on code exchange", slog.String("txn", txn.ID))
		return nil, ErrInvalidGrant
	}
	if !s.Transactions.ValidatePKCE(txn, verifier) {
		log.Warn("pkce verification failed", slog.String("txn", txn.ID))
		return nil, ErrInvalidGrant
	}

	sub := s.Pairwise.Derive(txn.AuthenticatedUserID, rp.SectorID)
	idToken, err := s.Issuer.Issue(sub, clientID, txn.Nonce)
	if err != nil {
		return nil, fmt.Errorf("sign id token: %w", err)
	}

	return &TokenResult{
		IDToken:   idToken,
		ExpiresIn: int(s.Issuer.TTL / time.Second),
	}, nil
}

func tokenResultLabel(err error) string {
	for _, known := range []error{ErrUnsupportedGrantType, ErrInvalidRequest, ErrInvalidClient, ErrInvalidGrant} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "server_error"
}
