package idp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and browser helpers for the identity provider end-to-end
 * tests. The image is built once in TestMain; each test gets a fresh
 * container and database.
 */

const (
	testImageName = "nullprofile-test:latest"

	testIssuer      = "http://nullprofile.test"
	testOrigin      = "http://localhost:8080"
	testRedirectURI = "https://app.example.com/callback"
)

var virtualRP = virtualwebauthn.RelyingParty{Name: "nullprofile", ID: "localhost", Origin: testOrigin}

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building nullprofile Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up nullprofile Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/nullprofile/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might already be gone
}

type idpContainer struct {
	testcontainers.Container
	BaseURL string
}

// containerOption adjusts the container environment.
type containerOption func(env map[string]string)

// withDefaultRateLimits drops the relaxed overrides so the production
// limits apply.
func withDefaultRateLimits() containerOption {
	return func(env map[string]string) {
		for k := range env {
			if strings.HasPrefix(k, "RATELIMIT_") {
				delete(env, k)
			}
		}
	}
}

// setupIDPContainer starts the provider with relaxed rate limits and
// returns its base URL.
func setupIDPContainer(t *testing.T, opts ...containerOption) *idpContainer {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"NP_ISSUER":          testIssuer,
		"NP_PAIRWISE_SALT":   "e2e-salt",
		"NP_DATABASE_FILE":   "/data/nullprofile.db",
		"NP_ALGORITHM":       "ES256",
		"NP_WEBAUTHN_RP_ID":  "localhost",
		"NP_WEBAUTHN_ORIGIN": testOrigin,
		"ENV":                "dev",
		"LOG_FORMAT":         "json",
		// Tests fire many requests from one address.
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
	for _, opt := range opts {
		opt(env)
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &idpContainer{
		Container: container,
		BaseURL:   fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}
}

// createRelyingParty registers a client with the CLI inside the container.
func (c *idpContainer) createRelyingParty(t *testing.T, name string) string {
	t.Helper()
	return c.createRelyingPartyWithRedirect(t, name, testRedirectURI)
}

func (c *idpContainer) createRelyingPartyWithRedirect(t *testing.T, name, redirectURI string) string {
	t.Helper()

	code, out, err := c.Exec(t.Context(), []string{
		"/nullprofile", "rp", "create",
		"--name", name,
		"--redirect-uri", redirectURI,
		"--json",
	}, tcexec.Multiplexed())
	require.NoError(t, err)

	raw, err := io.ReadAll(out)
	require.NoError(t, err)
	require.Equal(t, 0, code, string(raw))

	var created struct {
		ClientID string `json:"clientId"`
	}
	require.NoError(t, json.Unmarshal(raw, &created), string(raw))
	require.NotEmpty(t, created.ClientID)
	return created.ClientID
}

// newBrowser returns an HTTP client with a cookie jar that does not follow
// redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, browser *http.Client, target string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, target, strings.NewReader(string(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := browser.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func withFields(t *testing.T, body string, fields map[string]string) []byte {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	for k, v := range fields {
		m[k] = v
	}
	return mustJSON(t, m)
}

// registerPasskey creates an account bound to txn and returns the
// credential and the resume redirect.
func registerPasskey(t *testing.T, baseURL string, browser *http.Client, txn string) (virtualwebauthn.Credential, authsdk.CeremonyResponse) {
	t.Helper()

	resp := postJSON(t, browser, baseURL+"/webauthn/registration/options",
		mustJSON(t, authsdk.CeremonyOptionsRequest{Txn: txn, DisplayName: "E2E User"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	options, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAttestationOptions(string(options))
	require.NoError(t, err)
	cred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	attestation := virtualwebauthn.CreateAttestationResponse(virtualRP, virtualwebauthn.NewAuthenticator(), cred, *parsed)

	resp = postJSON(t, browser, baseURL+"/webauthn/registration/verify",
		withFields(t, attestation, map[string]string{"txn": txn, "name": "e2e key"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result authsdk.CeremonyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return cred, result
}

// signInWithPasskey runs the authentication ceremony for cred.
func signInWithPasskey(t *testing.T, baseURL string, browser *http.Client, txn, userID string, cred virtualwebauthn.Credential) authsdk.CeremonyResponse {
	t.Helper()

	resp := postJSON(t, browser, baseURL+"/webauthn/authentication/options",
		mustJSON(t, authsdk.CeremonyOptionsRequest{Txn: txn}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	options, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed, err := virtualwebauthn.ParseAssertionOptions(string(options))
	require.NoError(t, err)
	authenticator := virtualwebauthn.NewAuthenticatorWithOptions(virtualwebauthn.AuthenticatorOptions{UserHandle: []byte(userID)})
	authenticator.AddCredential(cred)
	assertion := virtualwebauthn.CreateAssertionResponse(virtualRP, authenticator, cred, *parsed)

	resp = postJSON(t, browser, baseURL+"/webauthn/authentication/verify",
		withFields(t, assertion, map[string]string{"txn": txn}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result authsdk.CeremonyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func currentSession(t *testing.T, baseURL string, browser *http.Client) authsdk.SessionResponse {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, baseURL+"/api/session/current", nil)
	require.NoError(t, err)
	resp, err := browser.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session authsdk.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()

	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
