package http

import (
	"net/http"

	"github.com/aussiebroadwan/messenger/pkg/httpx"
)

// PingHandler godoc
//
//	@Summary		Ping
//	@Description	Answers true when the auth API is reachable.
//	@Tags			Accounts
//	@Produce		json
//	@Success		200	{object}	httpx.Response	"data: true"
//	@Router			/auth/ping [get]
func PingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteOK(w, true)
	}
}

// notFoundHandler renders unknown routes in the envelope.
func notFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "Route not found")
	}
}

// methodNotAllowedHandler renders a method mismatch on a known route.
func methodNotAllowedHandler(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		httpx.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
