package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ExchangeAuthorizationCode redeems a code at the token endpoint.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/token", strings.NewReader(data.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
