package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
)

// RelyingPartiesHandler manages the relying parties owned by the signed-in
// user.
type RelyingPartiesHandler struct {
	RelyingPartyService *service.RelyingPartyService
}

// HandleList godoc
//
//	@Summary	List relying parties
//	@Tags		RelyingParties
//	@Produce	json
//	@Success	200	{array}		authsdk.RelyingPartySummary
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Router		/api/relying-parties [get]
func (h *RelyingPartiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rps, err := h.RelyingPartyService.List(r.Context(), sessionFromContext(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.RelyingPartySummary, len(rps))
	for i, rp := range rps {
		out[i] = toSummary(rp)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Get a relying party
//	@Tags		RelyingParties
//	@Produce	json
//	@Param		id	path		string	true	"Relying party id"
//	@Success	200	{object}	authsdk.RelyingPartyResponse
//	@Failure	404	{object}	authsdk.ErrorResponse
//	@Router		/api/relying-parties/{id} [get]
func (h *RelyingPartiesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rp, err := h.RelyingPartyService.Get(r.Context(), sessionFromContext(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(rp))
}

// HandleCreate godoc
//
//	@Summary		Register a relying party
//	@Description	Generates the rpId used as client_id. sectorId defaults to the host of the first redirect URI.
//	@Tags			RelyingParties
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RelyingPartyRequest	true	"Relying party"
//	@Success		201		{object}	authsdk.RelyingPartyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Router			/api/relying-parties [post]
func (h *RelyingPartiesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RelyingPartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	rp, err := h.RelyingPartyService.Create(r.Context(), sessionFromContext(r.Context()).UserID, toInput(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(rp))
}

// HandleUpdate godoc
//
//	@Summary		Update a relying party
//	@Description	Replaces name, redirect URIs, sector and branding. rpId never changes.
//	@Tags			RelyingParties
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Relying party id"
//	@Param			request	body		authsdk.RelyingPartyRequest	true	"Relying party"
//	@Success		200		{object}	authsdk.RelyingPartyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Router			/api/relying-parties/{id} [put]
func (h *RelyingPartiesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RelyingPartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	rp, err := h.RelyingPartyService.Update(r.Context(), sessionFromContext(r.Context()).UserID, r.PathValue("id"), toInput(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(rp))
}

// HandleDelete godoc
//
//	@Summary	Delete a relying party
//	@Tags		RelyingParties
//	@Param		id	path	string	true	"Relying party id"
//	@Success	204	"Deleted"
//	@Failure	404	{object}	authsdk.ErrorResponse
//	@Router		/api/relying-parties/{id} [delete]
func (h *RelyingPartiesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.RelyingPartyService.Delete(r.Context(), sessionFromContext(r.Context()).UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toInput(req authsdk.RelyingPartyRequest) service.RelyingPartyInput {
	return service.RelyingPartyInput{
		Name:           req.Name,
		RedirectURIs:   req.RedirectURIs,
		SectorID:       req.SectorID,
		LogoURL:        req.LogoURL,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
	}
}

func toSummary(rp domain.RelyingParty) authsdk.RelyingPartySummary {
	return authsdk.RelyingPartySummary{
		ID:        rp.ID,
		RPID:      rp.RPID,
		Name:      rp.Name,
		Status:    rp.Status,
		CreatedAt: rp.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toResponse(rp domain.RelyingParty) authsdk.RelyingPartyResponse {
	uris := rp.RedirectURIs
	if uris == nil {
		uris = []string{}
	}
	return authsdk.RelyingPartyResponse{
		RelyingPartySummary: toSummary(rp),
		RedirectURIs:        uris,
		SectorID:            rp.SectorID,
		LogoURL:             rp.LogoURL,
		PrimaryColor:        rp.PrimaryColor,
		SecondaryColor:      rp.SecondaryColor,
		UpdatedAt:           rp.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
