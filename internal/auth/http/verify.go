package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

// VerifyHandler serves POST /auth/verify.
type VerifyHandler struct {
	Accounts Accounts
}

// ServeHTTP godoc
//
//	@Summary		Verify Code
//	@Description	Submits an emailed code. Completes a two-factor login or confirms a new account, returning the profile and a session token.
//	@Description	A wrong code leaves the pending code in place.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyRequest	true	"User id and code"
//	@Success		200		{object}	httpx.Response			"data: authsdk.UserResponse"
//	@Failure		400		{object}	httpx.Response			"wrong code or invalid body"
//	@Failure		404		{object}	httpx.Response			"no pending code for this user"
//	@Router			/auth/verify [post]
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Decode and validate
	var req authsdk.VerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := req.Validate(); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	// 2. Consume the code
	res, err := h.Accounts.Verify(ctx, req.UserID, req.VerificationCode)
	switch {
	case errors.Is(err, service.ErrVerificationMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "Verification code does not match")
		return
	case errors.Is(err, service.ErrVerificationNotFound):
		httpx.WriteError(w, http.StatusNotFound, "No verification code found for this user")
		return
	case err != nil:
		log.Error("verify failed", "user_id", req.UserID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info("verification accepted", "user_id", req.UserID)
	httpx.WriteOK(w, userResponse(res.Profile, res.Token, false))
}
