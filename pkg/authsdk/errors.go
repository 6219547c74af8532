package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/messenger/pkg/httpx"
)

// ErrSessionExpired is returned by Session methods once the token has expired.
// Log in again to get a fresh session.
var ErrSessionExpired = errors.New("authsdk: session expired")

// Error is a failed envelope returned by the service.
type Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Message is the apiError message
	Message string

	// FieldErrors lists offending request fields, if any
	FieldErrors []httpx.FieldError
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("authsdk: %d: %s", e.StatusCode, e.Message)
}

// HasField reports whether the service flagged field (case-insensitive).
func (e *Error) HasField(field string) bool {
	for _, f := range e.FieldErrors {
		if strings.EqualFold(f.Field, field) {
			return true
		}
	}
	return false
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// errorFromResponse builds the *Error for a failed call. Bodies that are not
// an envelope fall back to the status text.
func errorFromResponse(status int, body []byte) *Error {
	var env Response[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.APIError != nil {
		return &Error{
			StatusCode:  status,
			Message:     env.APIError.Message,
			FieldErrors: env.FieldErrors,
		}
	}
	return &Error{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}
}

// VerificationRequiredError is returned by AuthenticateWithPassword when the
// account has two-factor enabled and a code was emailed.
type VerificationRequiredError struct {
	UserID uint64
}

// Error implements the error interface.
func (e *VerificationRequiredError) Error() string {
	return fmt.Sprintf("authsdk: verification code required for user %d", e.UserID)
}
