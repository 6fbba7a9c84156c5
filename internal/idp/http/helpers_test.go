package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer      = "https://id.example.com"
	testRedirectURI = "https://app.example.com/cb"
	testOrigin      = "http://localhost:8080"
)

var virtualRP = virtualwebauthn.RelyingParty{Name: "nullprofile", ID: "localhost", Origin: testOrigin}

type testServer struct {
	*httptest.Server

	store   *sqlite.Store
	keys    *jwtx.KeyManager
	metrics *service.Metrics
	rp      domain.RelyingParty
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256})
	require.NoError(t, err)

	pairwise, err := service.NewPairwiseSubjectService("test-salt")
	require.NoError(t, err)

	metrics := service.NewMetrics()
	sessions := service.NewSessionStore(service.DefaultSessionTimeout)
	challenges := service.NewChallengeStore(service.DefaultChallengeTimeout)
	txns := service.NewTransactionStore(service.DefaultCodeValidity, service.DefaultSessionTimeout)

	webauthnSvc, err := service.NewWebAuthnService(service.WebAuthnConfig{
		RPID:    "localhost",
		RPName:  "nullprofile",
		Origins: []string{testOrigin},
	}, st, sessions, challenges, txns, metrics)
	require.NoError(t, err)

	rps := service.NewRelyingPartyService(st)
	rp, err := rps.Create(context.Background(), "", service.RelyingPartyInput{
		Name:         "Example App",
		RedirectURIs: []string{testRedirectURI},
		PrimaryColor: "#112233",
	})
	require.NoError(t, err)

	router := NewRouter(keys, testIssuer, "test", st, slogx.Discard())
	router.Sessions = &SessionManager{Sessions: sessions}
	router.Metrics = metrics
	router.AuthorizeService = &service.AuthorizeService{
		Validator:      service.NewAuthorizationRequestValidator(st.RelyingParties(), service.ValidatorConfig{AllowHTTPLocalhost: true}),
		Transactions:   txns,
		RelyingParties: st.RelyingParties(),
		LoginURL:       "/login",
		Metrics:        metrics,
	}
	router.TokenService = &service.TokenService{
		RelyingParties: st.RelyingParties(),
		Transactions:   txns,
		Pairwise:       pairwise,
		Issuer:         service.NewTokenIssuer(testIssuer, keys),
		Metrics:        metrics,
	}
	router.WebAuthnService = webauthnSvc
	router.PasskeyService = &service.PasskeyService{Store: st}
	router.AccountService = &service.AccountService{Store: st, Sessions: sessions, Challenges: challenges, Transactions: txns}
	router.RelyingPartyService = rps
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: st, keys: keys, metrics: metrics, rp: rp}
}

// browser returns a client with its own cookie jar that does not follow
// redirects.
func (s *testServer) browser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) authorizeURL(pkce *authsdk.PKCEChallenge) string {
	sdk := authsdk.NewSDKClient(s.URL)
	return sdk.BuildAuthorizeURL(s.rp.RPID, testRedirectURI, "xyz", "n-0S6_WzA2Mj", pkce)
}

func do(t *testing.T, c *http.Client, method, target, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	return do(t, c, http.MethodGet, target, "", nil)
}

func postJSON(t *testing.T, c *http.Client, target string, v any) *http.Response {
	t.Helper()

	var raw []byte
	switch b := v.(type) {
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return do(t, c, http.MethodPost, target, "application/json", strings.NewReader(string(raw)))
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireOAuthError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()

	require.Equal(t, status, resp.StatusCode)
	body := decode[authsdk.ErrorResponse](t, resp)
	require.Equal(t, code, body.Error)
}

func locationQuery(t *testing.T, resp *http.Response) url.Values {
	t.Helper()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	u, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return u.Query()
}

// startLogin runs /authorize for an anonymous browser and returns the txn.
func (s *testServer) startLogin(t *testing.T, c *http.Client, pkce *authsdk.PKCEChallenge) string {
	t.Helper()

	resp := get(t, c, s.authorizeURL(pkce))
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login?"), resp.Header.Get("Location"))
	txn := locationQuery(t, resp).Get("txn")
	require.NotEmpty(t, txn)
	return txn
}

// register runs the registration ceremony over HTTP with a virtual
// authenticator.
func (s *testServer) register(t *testing.T, c *http.Client, txn string) (virtualwebauthn.Credential, authsdk.CeremonyResponse) {
	t.Helper()

	resp := postJSON(t, c, s.URL+"/webauthn/registration/options", authsdk.CeremonyOptionsRequest{Txn: txn, DisplayName: "Alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	options, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAttestationOptions(string(options))
	require.NoError(t, err)
	cred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	body := virtualwebauthn.CreateAttestationResponse(virtualRP, virtualwebauthn.NewAuthenticator(), cred, *parsed)

	resp = postJSON(t, c, s.URL+"/webauthn/registration/verify", withFields(t, body, map[string]string{"txn": txn, "name": "Laptop"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return cred, decode[authsdk.CeremonyResponse](t, resp)
}

// signIn runs the authentication ceremony for cred.
func (s *testServer) signIn(t *testing.T, c *http.Client, txn, userID string, cred virtualwebauthn.Credential) *http.Response {
	t.Helper()

	resp := postJSON(t, c, s.URL+"/webauthn/authentication/options", authsdk.CeremonyOptionsRequest{Txn: txn})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	options, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAssertionOptions(string(options))
	require.NoError(t, err)
	auth := virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{UserHandle: []byte(userID)})
	auth.AddCredential(cred)
	body := virtualwebauthn.CreateAssertionResponse(virtualRP, auth, cred, *parsed)

	fields := map[string]string{}
	if txn != "" {
		fields["txn"] = txn
	}
	return postJSON(t, c, s.URL+"/webauthn/authentication/verify", withFields(t, body, fields))
}

func withFields(t *testing.T, body string, fields map[string]string) []byte {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	for k, v := range fields {
		m[k] = v
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

func (s *testServer) exchange(t *testing.T, c *http.Client, code, verifier string) *http.Response {
	t.Helper()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {s.rp.RPID},
		"code_verifier": {verifier},
		"redirect_uri":  {testRedirectURI},
	}
	return do(t, c, http.MethodPost, s.URL+"/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}
