package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// undecryptable records alike so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrVerificationNotFound means there is no live code for the user: it
	// was never issued, already consumed, or expired.
	ErrVerificationNotFound = errors.New("verification not found or expired")

	// ErrVerificationMismatch means a live code exists but the submitted one
	// differs. The pending entry is left untouched.
	ErrVerificationMismatch = errors.New("verification code does not match")

	ErrLedgerClosed = errors.New("verification ledger closed")
	ErrQueueStopped = errors.New("write queue stopped")
)

// ConflictError reports which unique fields of a new account are taken.
type ConflictError struct {
	Fields []string
}

func (e *ConflictError) Error() string {
	return strings.Join(e.Fields, ", ") + " already in use"
}

// Has reports whether field is among the conflicting ones.
func (e *ConflictError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
