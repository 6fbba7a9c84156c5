package http

import (
	"net/http"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// AccountHandler serves the session and account endpoints.
type AccountHandler struct {
	AccountService *service.AccountService
	Cookies        *SessionManager
}

// HandleCurrent godoc
//
//	@Summary	Current session
//	@Tags		Session
//	@Produce	json
//	@Success	200	{object}	authsdk.SessionResponse
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Router		/api/session/current [get]
func (h *AccountHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	u, err := h.AccountService.CurrentUser(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
	})
}

// HandleLogout godoc
//
//	@Summary		Sign out
//	@Description	Destroys the session together with its pending transactions and challenges.
//	@Tags			Session
//	@Success		204	"Signed out"
//	@Router			/api/session/logout [post]
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.AccountService.Logout(sessionFromContext(r.Context()))
	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete godoc
//
//	@Summary		Delete account
//	@Description	Deletes the signed-in user with its passkeys and the relying parties it created.
//	@Tags			Account
//	@Success		204	"Account deleted"
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		500	{object}	authsdk.ErrorResponse
//	@Router			/api/account [delete]
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.AccountService.DeleteAccount(r.Context(), sessionFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
