package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// AuthorizeHandler serves the authorization endpoint and its resume step.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// HandleAuthorize godoc
//
//	@Summary		OpenID Connect authorization endpoint
//	@Description	Starts the authorization code flow with PKCE (S256 only).
//	@Description
//	@Description	**Response:**
//	@Description	- Signed-in session: 302 to redirect_uri with code and state
//	@Description	- No session or prompt=login: 302 to the login page with txn
//	@Description	- Error after client and redirect_uri are verified: 302 to redirect_uri with error
//	@Description	- Any other error: JSON error response, never a redirect
//	@Tags			OIDC
//	@Produce		json
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			scope					query		string					true	"Must be 'openid'"	default(openid)
//	@Param			client_id				query		string					true	"Relying party rpId"
//	@Param			redirect_uri			query		string					true	"Registered callback URI (exact match)"
//	@Param			nonce					query		string					true	"Echoed in the ID token"
//	@Param			code_challenge			query		string					true	"PKCE challenge, base64url, 43 to 128 characters"	example("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
//	@Param			code_challenge_method	query		string					true	"PKCE method"	Enums(S256)
//	@Param			state					query		string					false	"Opaque value returned on the callback"
//	@Param			prompt					query		string					false	"'login' forces a new ceremony; none, consent and select_account are rejected"
//	@Success		302						{string}	string					"Redirect to redirect_uri or the login page"
//	@Failure		400						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/authorize [get]
func (h *AuthorizeHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.AuthorizationRequest{
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Prompt:              q.Get("prompt"),
	}

	location, err := h.AuthorizeService.Authorize(r.Context(), sessionFromContext(r.Context()), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			authsdk.NewOAuth2Error(http.StatusBadRequest, verr.Code, verr.Description).WriteError(w)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, location, http.StatusFound)
}

// HandleResume godoc
//
//	@Summary		Resume an authorization after a ceremony
//	@Description	Issues the code for a transaction the current session has authenticated,
//	@Description	or sends the browser back to the login page when it has not.
//	@Tags			OIDC
//	@Produce		json
//	@Param			txn	query		string					true	"Transaction id from the login redirect"
//	@Success		302	{string}	string					"Redirect to redirect_uri or the login page"
//	@Failure		400	{object}	authsdk.ErrorResponse	"unknown transaction or invalid state"
//	@Router			/authorize/resume [get]
func (h *AuthorizeHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	txnID := r.URL.Query().Get("txn")
	if txnID == "" {
		authsdk.ErrInvalidRequest.WithDescription("txn is required").WriteError(w)
		return
	}

	location, err := h.AuthorizeService.Resume(r.Context(), sessionFromContext(r.Context()), txnID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, location, http.StatusFound)
}

// BrandingHandler godoc
//
//	@Summary		Relying party branding for the login page
//	@Tags			OIDC
//	@Produce		json
//	@Param			txn	query		string						true	"Transaction id"
//	@Success		200	{object}	authsdk.BrandingResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/api/oidc/branding [get]
func (h *AuthorizeHandler) HandleBranding(w http.ResponseWriter, r *http.Request) {
	txnID := r.URL.Query().Get("txn")
	if txnID == "" {
		authsdk.ErrInvalidRequest.WithDescription("txn is required").WriteError(w)
		return
	}

	b, err := h.AuthorizeService.Branding(r.Context(), sessionFromContext(r.Context()), txnID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BrandingResponse{
		RPName:         b.RPName,
		DisplayName:    b.DisplayName,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		LogoURL:        b.LogoURL,
	})
}
