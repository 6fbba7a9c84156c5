package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer      = "https://id.example.com"
	testRedirectURI = "https://app.example.com/cb"
	testRPID        = "localhost"
	testOrigin      = "http://localhost:8080"
)

// fakeClock is a settable clock shared by every store of a fixture.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store      *sqlite.Store
	clock      *fakeClock
	sessions   *SessionStore
	challenges *ChallengeStore
	txns       *TransactionStore
	metrics    *Metrics
	pairwise   *PairwiseSubjectService
	keys       *jwtx.KeyManager
	authorize  *AuthorizeService
	token      *TokenService
	webauthn   *WebAuthnService
	rps        *RelyingPartyService
	passkeys   *PasskeyService
	account    *AccountService

	rp domain.RelyingParty
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := newFakeClock()
	f := &fixture{store: st, clock: clock, metrics: NewMetrics()}

	f.sessions = NewSessionStore(DefaultSessionTimeout)
	f.sessions.Now = clock.Now
	f.challenges = NewChallengeStore(DefaultChallengeTimeout)
	f.challenges.Now = clock.Now
	f.txns = NewTransactionStore(DefaultCodeValidity, DefaultSessionTimeout)
	f.txns.Now = clock.Now

	f.pairwise, err = NewPairwiseSubjectService("test-salt")
	require.NoError(t, err)

	f.keys, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	f.rps = NewRelyingPartyService(st)
	f.authorize = &AuthorizeService{
		Validator:      NewAuthorizationRequestValidator(st.RelyingParties(), ValidatorConfig{AllowHTTPLocalhost: true}),
		Transactions:   f.txns,
		RelyingParties: st.RelyingParties(),
		LoginURL:       "/login",
		Metrics:        f.metrics,
	}
	f.token = &TokenService{
		RelyingParties: st.RelyingParties(),
		Transactions:   f.txns,
		Pairwise:       f.pairwise,
		Issuer:         NewTokenIssuer(testIssuer, f.keys),
		Metrics:        f.metrics,
	}
	f.webauthn, err = NewWebAuthnService(WebAuthnConfig{
		RPID:    testRPID,
		RPName:  "nullprofile",
		Origins: []string{testOrigin},
	}, st, f.sessions, f.challenges, f.txns, f.metrics)
	require.NoError(t, err)
	f.passkeys = &PasskeyService{Store: st}
	f.account = &AccountService{Store: st, Sessions: f.sessions, Challenges: f.challenges, Transactions: f.txns}

	f.rp, err = f.rps.Create(context.Background(), "", RelyingPartyInput{
		Name:         "Example App",
		RedirectURIs: []string{testRedirectURI, "http://localhost:3000/cb", "http://app.example.com/cb"},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) ctx() context.Context {
	return slogx.WithContext(context.Background(), slogx.Discard())
}

func (f *fixture) newSession(t *testing.T) *Session {
	t.Helper()

	sess, err := f.sessions.Create()
	require.NoError(t, err)
	return sess
}

// signedIn creates a user and an authenticated session for it.
func (f *fixture) signedIn(t *testing.T) *Session {
	t.Helper()

	sess := f.newSession(t)
	user := domain.User{ID: "0b8a3a3e-5b7c-4c53-9d7b-2f4f1c0d9e11", DisplayName: "Alice", CreatedAt: f.clock.Now()}
	if _, err := f.store.Users().GetUserByID(context.Background(), user.ID); err != nil {
		require.NoError(t, f.store.Users().CreateUser(context.Background(), user))
	}
	sess, err := f.sessions.Authenticate(sess.ID, user.ID)
	require.NoError(t, err)
	return sess
}

type pkcePair struct {
	verifier  string
	challenge string
}

func newPKCE(t *testing.T) pkcePair {
	t.Helper()

	v, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	return pkcePair{verifier: v, challenge: cryptox.FingerprintToken(v)}
}

func (f *fixture) authRequest(pkce pkcePair) AuthorizationRequest {
	return AuthorizationRequest{
		ResponseType:        "code",
		Scope:               "openid",
		ClientID:            f.rp.RPID,
		RedirectURI:         testRedirectURI,
		State:               "xyz",
		Nonce:               "n-0S6_WzA2Mj",
		CodeChallenge:       pkce.challenge,
		CodeChallengeMethod: "S256",
	}
}

// codeFor runs the authorization endpoint for a signed-in session and
// returns the issued code.
func (f *fixture) codeFor(t *testing.T, sess *Session, pkce pkcePair) string {
	t.Helper()

	location, err := f.authorize.Authorize(f.ctx(), sess, f.authRequest(pkce))
	require.NoError(t, err)

	u, err := url.Parse(location)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.NotEmpty(t, code, location)
	return code
}

func (f *fixture) tokenRequest(code string, pkce pkcePair) TokenRequest {
	return TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		Code:         code,
		ClientID:     f.rp.RPID,
		CodeVerifier: pkce.verifier,
		RedirectURI:  testRedirectURI,
	}
}

func parseCallback(location string) (code, state string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	q := u.Query()
	return q.Get("code"), q.Get("state"), nil
}
