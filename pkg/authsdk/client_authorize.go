package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
)

// PKCEChallenge holds the verifier kept by the client and the S256 challenge
// sent on the authorization request.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCEChallenge creates a 256-bit verifier and its S256 challenge.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: cryptox.FingerprintToken(verifier),
		Method:    "S256",
	}, nil
}

// GenerateNonce returns a random value for the nonce parameter.
func GenerateNonce() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize128)
}

// BuildAuthorizeURL constructs the authorization endpoint URL. State is
// omitted when empty; pkce is required by the provider.
func (c *SDKClient) BuildAuthorizeURL(clientID, redirectURI, state, nonce string, pkce *PKCEChallenge) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("scope", "openid")
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("nonce", nonce)

	if state != "" {
		params.Set("state", state)
	}
	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.Method)
	}

	return fmt.Sprintf("%s/authorize?%s", c.BaseURL, params.Encode())
}

// AuthorizeResult is where the provider sent the browser. Exactly one of
// Code (with State) or LoginURL (with Txn) is set.
type AuthorizeResult struct {
	Code     string
	State    string
	LoginURL string
	Txn      string
}

// ErrLoginRequired is returned by FollowAuthorize when the provider asked for
// a WebAuthn ceremony instead of issuing a code.
var ErrLoginRequired = errors.New("authsdk: login required")

// FollowAuthorize performs a GET on an authorization (or resume) URL without
// following the redirect and interprets the Location. httpClient carries the
// browser session cookie jar; the client's own HTTP client is used when nil.
func (c *SDKClient) FollowAuthorize(ctx context.Context, httpClient *http.Client, authorizeURL string) (*AuthorizeResult, error) {
	if httpClient == nil {
		httpClient = c.HTTPClient
	}
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authorizeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		if perr := parseErrorResponse(resp, body); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("authorize returned status %d", resp.StatusCode)
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || location.String() == "" {
		return nil, errors.New("authorize redirect missing Location header")
	}

	query := location.Query()
	if txn := query.Get("txn"); txn != "" && query.Get("code") == "" && query.Get("error") == "" {
		return &AuthorizeResult{LoginURL: location.String(), Txn: txn}, ErrLoginRequired
	}

	code, state, err := ParseAuthorizationCallback(location.String())
	if err != nil {
		return nil, err
	}
	return &AuthorizeResult{Code: code, State: state}, nil
}

// ParseAuthorizationCallback extracts code and state from the redirect back
// to the relying party. An error redirect is returned as *OAuth2Error.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()
	if errorCode := query.Get("error"); errorCode != "" {
		return "", query.Get("state"), &OAuth2Error{
			StatusCode:  http.StatusFound,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code = query.Get("code")
	if code == "" {
		return "", "", errors.New("callback missing authorization code")
	}

	return code, query.Get("state"), nil
}
