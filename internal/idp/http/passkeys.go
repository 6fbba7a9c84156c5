package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// PasskeysHandler manages the passkeys of the signed-in user.
type PasskeysHandler struct {
	PasskeyService  *service.PasskeyService
	WebAuthnService *service.WebAuthnService
}

// HandleList godoc
//
//	@Summary	List passkeys
//	@Tags		Passkeys
//	@Produce	json
//	@Success	200	{array}		authsdk.PasskeyResponse
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Router		/api/passkeys [get]
func (h *PasskeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	creds, err := h.PasskeyService.List(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.PasskeyResponse, len(creds))
	for i, c := range creds {
		out[i] = authsdk.PasskeyResponse{
			ID:        c.ID,
			Name:      c.Name,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if c.LastUsedAt != nil {
			used := c.LastUsedAt.UTC().Format(time.RFC3339)
			out[i].LastUsedAt = &used
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleOptions godoc
//
//	@Summary		Begin adding a passkey
//	@Description	Creation options for the current user. Registered credentials are excluded.
//	@Tags			Passkeys
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CeremonyOptionsRequest	false	"Display name"
//	@Success		200		{object}	object							"PublicKeyCredentialCreationOptions"
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Router			/api/passkeys/options [post]
func (h *PasskeysHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CeremonyOptionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	creation, err := h.WebAuthnService.PasskeyOptions(r.Context(), sessionFromContext(r.Context()), req.DisplayName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, creation.Response)
}

// HandleVerify godoc
//
//	@Summary	Finish adding a passkey
//	@Tags		Passkeys
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	authsdk.CeremonyResponse
//	@Failure	400	{object}	authsdk.ErrorResponse	"challenge_expired, verification_failed or invalid_request"
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Router		/api/passkeys/verify [post]
func (h *PasskeysHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
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

// HandleRename godoc
//
//	@Summary	Rename a passkey
//	@Tags		Passkeys
//	@Accept		json
//	@Param		id		path	string							true	"Passkey id"
//	@Param		request	body	authsdk.RenamePasskeyRequest	true	"New name"
//	@Success	204		"Renamed"
//	@Failure	400		{object}	authsdk.ErrorResponse
//	@Failure	404		{object}	authsdk.ErrorResponse
//	@Router		/api/passkeys/{id} [put]
func (h *PasskeysHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RenamePasskeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	sess := sessionFromContext(r.Context())
	if err := h.PasskeyService.Rename(r.Context(), sess.UserID, r.PathValue("id"), req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete godoc
//
//	@Summary	Delete a passkey
//	@Tags		Passkeys
//	@Param		id	path	string	true	"Passkey id"
//	@Success	204	"Deleted"
//	@Failure	404	{object}	authsdk.ErrorResponse
//	@Failure	409	{object}	authsdk.ErrorResponse	"last passkey, see X-Error-Message"
//	@Router		/api/passkeys/{id} [delete]
func (h *PasskeysHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if err := h.PasskeyService.Delete(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
