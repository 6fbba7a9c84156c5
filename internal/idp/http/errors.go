package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

// headerErrorMessage carries a human readable reason on conflict responses.
const headerErrorMessage = "X-Error-Message"

var errUnknownTransaction = authsdk.ErrInvalidRequest.WithDescription("unknown or expired transaction")

// writeServiceError maps a service error onto its protocol error. Anything
// unrecognised is logged and reported as server_error without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *service.InputError

	switch {
	case errors.As(err, &inputErr):
		authsdk.ErrInvalidRequest.WithDescription(inputErr.Err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedGrantType):
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	case errors.Is(err, service.ErrInvalidClient):
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant), errors.Is(err, service.ErrStateConflict):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrTransactionNotFound):
		errUnknownTransaction.WriteError(w)
	case errors.Is(err, service.ErrChallengeExpired):
		authsdk.ErrChallengeExpired.WriteError(w)
	case errors.Is(err, service.ErrVerificationFailed):
		authsdk.ErrVerificationFailed.WriteError(w)
	case errors.Is(err, service.ErrUnauthenticated):
		authsdk.ErrUnauthorized.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrLastPasskey):
		w.Header().Set(headerErrorMessage, "Cannot delete the last passkey")
		authsdk.ErrConflict.WithDescription(err.Error()).WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// writeBodyError answers a request whose JSON body could not be read.
func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, httpx.ErrUnsupportedMediaType) {
		authsdk.NewOAuth2Error(http.StatusUnsupportedMediaType, authsdk.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		return
	}
	authsdk.ErrInvalidRequest.WithDescription("Invalid JSON in request body").WriteError(w)
}
