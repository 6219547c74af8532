package http

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/idx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

// CreateHandler serves POST /auth/create.
type CreateHandler struct {
	Accounts Accounts
	Now      func() time.Time
}

// ServeHTTP godoc
//
//	@Summary		Create Account
//	@Description	Registers a new account and returns its id. Persistence happens in the background and a confirmation code is emailed.
//	@Description	An account whose confirmation code expires unconfirmed is deleted.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateAccountRequest	true	"New account"
//	@Success		200		{object}	httpx.Response					"data: account id"
//	@Failure		400		{object}	httpx.Response					"invalid body or fields"
//	@Failure		409		{object}	httpx.Response					"email or username already in use"
//	@Failure		503		{object}	httpx.Response					"id allocation or store unavailable"
//	@Router			/auth/create [post]
func (h *CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Decode and validate
	var req authsdk.CreateAccountRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := req.Validate(h.now()); errs != nil {
		writeValidationErrors(w, errs)
		return
	}
	birthday, _ := authsdk.ParseBirthday(req.Birthday)

	// 2. Create the account
	id, err := h.Accounts.Create(ctx, domain.NewAccount{
		Email:          req.Email,
		Password:       req.Password,
		Username:       req.Username,
		Biography:      req.Biography,
		ProfilePicture: req.ProfilePicture,
		TFAEnabled:     req.TFAEnabled,
		Birthday:       birthday,
	})

	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeConflict(w, conflict)
		return
	case errors.Is(err, idx.ErrClockRegression):
		log.Error("account id allocation failed", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	case errors.Is(err, store.ErrTransient):
		log.Error("account availability check failed", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	case err != nil:
		log.Error("create account failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info("account created", "user_id", id)
	httpx.WriteOK(w, id)
}

func (h *CreateHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

var conflictLabels = map[string]string{
	store.FieldEmail:    "Email",
	store.FieldUsername: "Username",
}

// writeConflict renders a 409 naming every taken field. The top-level message
// is the first one.
func writeConflict(w http.ResponseWriter, c *service.ConflictError) {
	fields := make([]httpx.FieldError, 0, len(c.Fields))
	for _, f := range c.Fields {
		label, ok := conflictLabels[f]
		if !ok {
			label = f
		}
		fields = append(fields, httpx.FieldError{Field: label, Message: label + " already in use"})
	}
	message := "Account already exists"
	if len(fields) > 0 {
		message = fields[0].Message
	}
	httpx.WriteError(w, http.StatusConflict, message, fields...)
}

func writeValidationErrors(w http.ResponseWriter, errs map[string]string) {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]httpx.FieldError, 0, len(names))
	for _, name := range names {
		fields = append(fields, httpx.FieldError{Field: name, Message: errs[name]})
	}
	httpx.WriteError(w, http.StatusBadRequest, "Validation failed", fields...)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, httpx.ErrBodyTooLarge) {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
}
