package idp_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitTokenEndpoint checks the strict profile (10 per minute) on
// the code exchange.
func TestRateLimitTokenEndpoint(t *testing.T) {
	c := setupIDPContainer(t, withDefaultRateLimits())
	clientID := c.createRelyingParty(t, "Limited")
	sdk := authsdk.NewSDKClient(c.BaseURL)

	verifier := strings.Repeat("v", 43)
	for i := range 10 {
		_, err := sdk.ExchangeAuthorizationCode(t.Context(), clientID, "bogus", testRedirectURI, verifier)
		var oauthErr *authsdk.OAuth2Error
		require.True(t, errors.As(err, &oauthErr))
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oauthErr.Code, "request %d", i+1)
	}

	_, err := sdk.ExchangeAuthorizationCode(t.Context(), clientID, "bogus", testRedirectURI, verifier)
	var oauthErr *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oauthErr))
	require.Equal(t, http.StatusTooManyRequests, oauthErr.StatusCode)
}

// TestRateLimitDiscoveryIsPublic checks that discovery is not throttled by
// the strict profile.
func TestRateLimitDiscoveryIsPublic(t *testing.T) {
	c := setupIDPContainer(t, withDefaultRateLimits())
	sdk := authsdk.NewSDKClient(c.BaseURL)

	for range 30 {
		_, err := sdk.GetDiscovery(t.Context())
		require.NoError(t, err)
	}
}
