package service

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/pkg/cryptox"
	"github.com/aussiebroadwan/messenger/pkg/idx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

const (
	DefaultVerificationTTL = 5 * time.Minute
	DefaultCodeDigits      = 8
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// LedgerOptions configures a VerificationLedger. Zero values pick defaults.
type LedgerOptions struct {
	TTL    time.Duration
	Digits int

	// OnExpire runs after an entry expired unconsumed, outside the ledger lock.
	OnExpire func(ctx context.Context, e domain.VerificationEntry)

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) Stopper
	NewCode   func(digits int) (uint32, error)
}

type ledgerSlot struct {
	entry domain.VerificationEntry
	timer Stopper
}

// VerificationLedger tracks at most one pending code per user. Every issuance
// gets a fresh token and its expiry timer only removes the entry carrying that
// token, so a superseded timer can never clear a newer code.
type VerificationLedger struct {
	ttl      time.Duration
	digits   int
	onExpire func(ctx context.Context, e domain.VerificationEntry)
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) Stopper
	newCode   func(digits int) (uint32, error)

	mu      sync.Mutex
	entries map[uint64]ledgerSlot
	closed  bool
}

func NewVerificationLedger(opts LedgerOptions) *VerificationLedger {
	l := &VerificationLedger{
		ttl:       opts.TTL,
		digits:    opts.Digits,
		onExpire:  opts.OnExpire,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		afterFunc: opts.AfterFunc,
		newCode:   opts.NewCode,
		entries:   make(map[uint64]ledgerSlot),
	}
	if l.ttl <= 0 {
		l.ttl = DefaultVerificationTTL
	}
	if l.digits <= 0 {
		l.digits = DefaultCodeDigits
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.afterFunc == nil {
		l.afterFunc = func(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }
	}
	if l.newCode == nil {
		l.newCode = cryptox.GenerateNumericCode
	}
	return l
}

// Issue creates a new code for userID, replacing any pending one. Replacing a
// signup entry keeps its purpose and deadline, so an account cannot escape
// its confirmation window by requesting a login code.
func (l *VerificationLedger) Issue(userID uint64, purpose domain.VerificationPurpose) (domain.VerificationEntry, error) {
	code, err := l.newCode(l.digits)
	if err != nil {
		return domain.VerificationEntry{}, err
	}

	now := l.now().UTC()
	entry := domain.VerificationEntry{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		Token:     idx.NewTokenAt(now),
		IssuedAt:  now,
		ExpiresAt: now.Add(l.ttl),
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return domain.VerificationEntry{}, ErrLedgerClosed
	}
	ttl := l.ttl
	if prev, ok := l.entries[userID]; ok {
		prev.timer.Stop()
		if prev.entry.Purpose == domain.PurposeSignup {
			entry.Purpose = domain.PurposeSignup
			entry.ExpiresAt = prev.entry.ExpiresAt
			ttl = max(entry.ExpiresAt.Sub(now), 0)
		}
	}
	token := entry.Token
	timer := l.afterFunc(ttl, func() { l.expire(userID, token) })
	l.entries[userID] = ledgerSlot{entry: entry, timer: timer}
	pending := len(l.entries)
	l.mu.Unlock()

	l.metrics.CodeIssued(string(entry.Purpose))
	l.metrics.SetPendingCodes(pending)
	return entry, nil
}

// Verify consumes the pending entry when code matches. A wrong code leaves the
// entry in place.
func (l *VerificationLedger) Verify(userID uint64, code uint32) (domain.VerificationEntry, error) {
	l.mu.Lock()
	slot, ok := l.entries[userID]
	switch {
	case !ok, slot.entry.Expired(l.now()):
		// An expired entry is left for its timer, which also runs OnExpire.
		l.mu.Unlock()
		l.metrics.Verification("not_found")
		return domain.VerificationEntry{}, ErrVerificationNotFound
	case !codesEqual(slot.entry.Code, code):
		l.mu.Unlock()
		l.metrics.Verification("mismatch")
		return domain.VerificationEntry{}, ErrVerificationMismatch
	}
	delete(l.entries, userID)
	slot.timer.Stop()
	pending := len(l.entries)
	l.mu.Unlock()

	l.metrics.Verification("ok")
	l.metrics.SetPendingCodes(pending)
	return slot.entry, nil
}

// Pending reports whether userID has a live code.
func (l *VerificationLedger) Pending(userID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.entries[userID]
	return ok && !slot.entry.Expired(l.now())
}

// Len returns the number of stored entries.
func (l *VerificationLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops every timer and drops all entries. Later Issue calls fail.
func (l *VerificationLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, slot := range l.entries {
		slot.timer.Stop()
		delete(l.entries, id)
	}
	l.closed = true
	l.metrics.SetPendingCodes(0)
}

func (l *VerificationLedger) expire(userID uint64, token idx.Token) {
	l.mu.Lock()
	slot, ok := l.entries[userID]
	if !ok || slot.entry.Token != token {
		l.mu.Unlock()
		return
	}
	delete(l.entries, userID)
	pending := len(l.entries)
	l.mu.Unlock()

	l.metrics.CodeExpired(string(slot.entry.Purpose))
	l.metrics.SetPendingCodes(pending)
	l.logger.Debug("verification code expired", "user_id", userID, "purpose", slot.entry.Purpose)

	if l.onExpire != nil {
		slogx.Guard(l.logger, "verification-expiry", func() {
			l.onExpire(context.Background(), slot.entry)
		})
	}
}

// codesEqual compares codes in constant time.
func codesEqual(a, b uint32) bool {
	var x, y [4]byte
	binary.BigEndian.PutUint32(x[:], a)
	binary.BigEndian.PutUint32(y[:], b)
	return subtle.ConstantTimeCompare(x[:], y[:]) == 1
}
