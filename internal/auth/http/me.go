package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

// MeHandler serves GET /auth/me for a bearer session token.
type MeHandler struct {
	Accounts Accounts
}

// ServeHTTP godoc
//
//	@Summary		Current Account
//	@Description	Returns the account behind the session token.
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Response	"data: authsdk.UserResponse"
//	@Failure		401	{object}	httpx.Response	"missing or invalid token"
//	@Failure		404	{object}	httpx.Response	"account no longer exists"
//	@Router			/auth/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Get user ID from the verified claims (injected by AuthnMiddleware)
	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "token verification failed")
		return
	}

	// 2. Load the profile
	profile, err := h.Accounts.Profile(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		log.Error("load profile failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteOK(w, userResponse(profile, "", false))
}
