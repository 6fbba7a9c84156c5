package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// TokenHandler serves POST /token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token endpoint
//	@Description	Exchanges an authorization code for an ID token. Clients are public; the
//	@Description	code is bound to client_id, redirect_uri and the PKCE verifier.
//	@Tags			OIDC
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code)
//	@Param			code			formData	string					true	"Authorization code"
//	@Param			client_id		formData	string					true	"Relying party rpId"
//	@Param			code_verifier	formData	string					true	"PKCE verifier"
//	@Param			redirect_uri	formData	string					true	"Redirect URI used on /authorize"
//	@Success		200				{object}	authsdk.TokenResponse	"id_token, token_type, expires_in"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidRequest.WithDescription("content type must be application/x-www-form-urlencoded").WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("malformed form body").WriteError(w)
		return
	}

	res, err := h.TokenService.Exchange(r.Context(), service.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Code:         r.PostForm.Get("code"),
		ClientID:     r.PostForm.Get("client_id"),
		CodeVerifier: r.PostForm.Get("code_verifier"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		IDToken:   res.IDToken,
		TokenType: "Bearer",
		ExpiresIn: res.ExpiresIn,
	})
}
