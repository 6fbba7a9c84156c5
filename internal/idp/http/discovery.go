package http

import (
	"net/http"

	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
)

// DiscoveryHandler godoc
//
//	@Summary		OpenID Provider metadata
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get]
func DiscoveryHandler(issuer, alg string) http.HandlerFunc {
	doc := authsdk.DiscoveryDocument{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/authorize",
		TokenEndpoint:                     issuer + "/token",
		JWKSURI:                           issuer + "/jwks.json",
		ResponseTypesSupported:            []string{"code"},
		SubjectTypesSupported:             []string{"pairwise"},
		IDTokenSigningAlgValuesSupported:  []string{alg},
		ScopesSupported:                   []string{"openid"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
		GrantTypesSupported:               []string{"authorization_code"},
		ClaimsSupported:                   []string{"sub", "iss", "aud", "exp", "iat", "nonce"},
		CodeChallengeMethodsSupported:     []string{"S256"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// JWKSHandler exposes the public signing keys.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify ID tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	object	"The JSON Web Key Set"
//	@Router			/jwks.json [get]
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys)
	}
}
