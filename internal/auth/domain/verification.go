package domain

import (
	"time"

	"github.com/aussiebroadwan/messenger/pkg/idx"
)

// VerificationPurpose records why a code was issued. It decides what happens
// when the code expires unconfirmed.
type VerificationPurpose string

const (
	// PurposeLogin is a second factor for an existing account.
	PurposeLogin VerificationPurpose = "login"
	// PurposeSignup confirms the email of a freshly created account. An
	// account whose signup code expires is deleted.
	PurposeSignup VerificationPurpose = "signup"
)

// VerificationEntry is a pending two-factor code. There is at most one live
// entry per user; Token distinguishes successive issuances for the same user.
type VerificationEntry struct {
	UserID    uint64
	Code      uint32
	Purpose   VerificationPurpose
	Token     idx.Token
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its deadline at now.
func (e VerificationEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
