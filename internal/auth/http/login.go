package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

// LoginHandler serves POST /auth/login.
type LoginHandler struct {
	Accounts Accounts
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Checks email and password. Unknown emails and wrong passwords both answer 404 with the same message.
//	@Description	With two-factor enabled a code is emailed and the response has verificationRequired set and no token.
//	@Description	isAutoLogin skips the code and reports tfaEnabled as null.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	httpx.Response			"data: authsdk.UserResponse"
//	@Failure		400		{object}	httpx.Response			"invalid body"
//	@Failure		404		{object}	httpx.Response			"invalid email or password"
//	@Router			/auth/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Decode and validate
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := req.Validate(); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	// 2. Authenticate
	res, err := h.Accounts.Login(ctx, service.LoginRequest{
		Email:       req.Email,
		Password:    req.Password,
		IsAutoLogin: req.IsAutoLogin,
	})
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusNotFound, "Invalid email or password")
		return
	case err != nil:
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info("login", "user_id", res.Profile.ID, "verification_required", res.VerificationRequired)
	httpx.WriteOK(w, userResponse(res.Profile, res.Token, res.VerificationRequired))
}
