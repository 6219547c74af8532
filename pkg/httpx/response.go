package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies. Profile pictures travel inline, so
// the limit is generous.
const MaxBodyBytes = 8 << 20

// Response is the envelope every endpoint answers with.
type Response struct {
	IsSuccess   bool         `json:"isSuccess"`
	Data        any          `json:"data"`
	APIError    *APIError    `json:"apiError,omitempty"`
	FieldErrors []FieldError `json:"fieldErrors"`
}

// APIError describes why a request failed.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// FieldError points at a single offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteOK writes a 200 envelope carrying data.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		IsSuccess:   true,
		Data:        data,
		FieldErrors: []FieldError{},
	})
}

// WriteError writes a failed envelope with the given status and message.
func WriteError(w http.ResponseWriter, code int, message string, fields ...FieldError) {
	if fields == nil {
		fields = []FieldError{}
	}
	WriteJSON(w, code, Response{
		IsSuccess:   false,
		APIError:    &APIError{StatusCode: code, Message: message},
		FieldErrors: fields,
	})
}

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("request body too large")

// DecodeJSON decodes a single JSON value from the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data after JSON value")
	}
	return nil
}
