package http

import (
	"net/http"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// WebAuthnHandler serves the registration and authentication ceremonies
// started from the login page.
type WebAuthnHandler struct {
	WebAuthnService *service.WebAuthnService
}

// HandleRegistrationOptions godoc
//
//	@Summary		Begin passkey registration
//	@Description	Issues creation options for a new account. The challenge is bound to the
//	@Description	browser session and, when txn is given, to that authorization transaction.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CeremonyOptionsRequest	false	"Transaction and display name"
//	@Success		200		{object}	object							"PublicKeyCredentialCreationOptions"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/webauthn/registration/options [post]
func (h *WebAuthnHandler) HandleRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CeremonyOptionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	creation, err := h.WebAuthnService.RegistrationOptions(r.Context(), sessionFromContext(r.Context()), req.Txn, req.DisplayName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, creation.Response)
}

// HandleRegistrationVerify godoc
//
//	@Summary		Finish passkey registration
//	@Description	Verifies the attestation, creates the account and signs the session in.
//	@Description	The body is the WebAuthn credential JSON with optional txn and name members.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	authsdk.CeremonyResponse	"status, redirect"
//	@Failure		400	{object}	authsdk.ErrorResponse		"challenge_expired, verification_failed or invalid_request"
//	@Router			/webauthn/registration/verify [post]
func (h *WebAuthnHandler) HandleRegistrationVerify(w http.ResponseWriter, r *http.Request) {
	body, err := httpx.ReadJSONBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	res, err := h.WebAuthnService.VerifyRegistration(r.Context(), sessionFromContext(r.Context()), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCeremony(w, res)
}

// HandleAuthenticationOptions godoc
//
//	@Summary		Begin passkey sign-in
//	@Description	Issues request options for a discoverable credential.
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CeremonyOptionsRequest	false	"Transaction"
//	@Success		200		{object}	object							"PublicKeyCredentialRequestOptions"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/webauthn/authentication/options [post]
func (h *WebAuthnHandler) HandleAuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CeremonyOptionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	assertion, err := h.WebAuthnService.AuthenticationOptions(r.Context(), sessionFromContext(r.Context()), req.Txn)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, assertion.Response)
}

// HandleAuthenticationVerify godoc
//
//	@Summary		Finish passkey sign-in
//	@Tags			WebAuthn
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	authsdk.CeremonyResponse	"status, redirect"
//	@Failure		400	{object}	authsdk.ErrorResponse		"challenge_expired, verification_failed or invalid_request"
//	@Router			/webauthn/authentication/verify [post]
func (h *WebAuthnHandler) HandleAuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	body, err := httpx.ReadJSONBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	res, err := h.WebAuthnService.VerifyAuthentication(r.Context(), sessionFromContext(r.Context()), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCeremony(w, res)
}

func writeCeremony(w http.ResponseWriter, res *service.CeremonyResult) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.CeremonyResponse{
		Status:   "ok",
		Redirect: res.Redirect,
	})
}
