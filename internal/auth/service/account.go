package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/internal/auth/notify"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/pkg/cryptox"
	"github.com/aussiebroadwan/messenger/pkg/idx"
	"github.com/aussiebroadwan/messenger/pkg/jwtx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

// IDGenerator hands out unique account ids. *idx.Snowflake implements it.
type IDGenerator interface {
	Generate() (uint64, error)
}

type LoginRequest struct {
	Email       string
	Password    string
	IsAutoLogin bool
}

// LoginResult is the outcome of Login or Verify. Token is empty while a
// verification code is pending.
type LoginResult struct {
	Profile              domain.Profile
	Token                string
	VerificationRequired bool
}

// AccountService implements account creation, login and code verification.
type AccountService struct {
	Store    store.Store
	IDs      IDGenerator
	Cipher   *cryptox.FieldCipher
	Ledger   *VerificationLedger
	Queue    *WriteQueue
	Sessions *SessionIssuer
	Notifier notify.Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time

	inflight sync.WaitGroup
}

// Create checks that email and username are free, allocates an id and
// returns it. Hashing, encryption, the insert and the signup code happen on a
// detached goroutine, so the account may not be stored yet when Create
// returns.
func (s *AccountService) Create(ctx context.Context, acct domain.NewAccount) (uint64, error) {
	email := cryptox.NormalizeEmail(acct.Email)
	fingerprint := s.Cipher.Fingerprint(email)

	emailTaken, usernameTaken, err := s.Store.Users().CheckAvailability(ctx, fingerprint, acct.Username)
	if err != nil {
		return 0, fmt.Errorf("check availability: %w", err)
	}
	if emailTaken || usernameTaken {
		conflict := &ConflictError{}
		if emailTaken {
			conflict.Fields = append(conflict.Fields, store.FieldEmail)
		}
		if usernameTaken {
			conflict.Fields = append(conflict.Fields, store.FieldUsername)
		}
		return 0, conflict
	}

	id, err := s.IDs.Generate()
	if err != nil {
		if errors.Is(err, idx.ErrClockRegression) {
			s.Metrics.ClockRegressed()
		}
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	s.Metrics.IDGenerated()
	s.Metrics.AccountCreated()

	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	slogx.Go(s.logger(), "persist-account", func() {
		defer s.inflight.Done()
		s.persist(detached, id, email, fingerprint, acct)
	})

	return id, nil
}

func (s *AccountService) persist(ctx context.Context, id uint64, email string, fingerprint []byte, acct domain.NewAccount) {
	logger := s.logger().With("user_id", id)

	passwordHash, err := cryptox.HashPassword(acct.Password)
	if err != nil {
		logger.Error("hash password", "error", err)
		return
	}
	emailCiphertext, err := s.Cipher.Encrypt(email)
	if err != nil {
		logger.Error("encrypt email", "error", err)
		return
	}

	u := domain.User{
		ID:              id,
		Username:        acct.Username,
		EmailHash:       fingerprint,
		EmailCiphertext: emailCiphertext,
		PasswordHash:    passwordHash,
		Biography:       acct.Biography,
		ProfilePicture:  acct.ProfilePicture,
		TFAEnabled:      acct.TFAEnabled,
		Birthday:        acct.Birthday.UTC(),
		CreatedAt:       s.now().UTC(),
	}

	stored, err := s.Queue.SaveWithRetry(ctx, u)
	if err != nil {
		// Lost a race with a concurrent signup for the same email or username.
		logger.Warn("account conflicts with existing data, discarded", "error", err)
		return
	}
	if !stored {
		logger.Info("account queued, signup code deferred until stored")
		return
	}
	s.issueSignup(ctx, id, email)
}

// SignupStored is the write queue's OnStored hook. It issues the signup code
// for an account the queue saved after Create's goroutine gave up waiting.
func (s *AccountService) SignupStored(ctx context.Context, u domain.User) {
	email, err := s.Cipher.Decrypt(u.EmailCiphertext)
	if err != nil {
		s.logger().Error("stored email failed authentication", "user_id", u.ID, "error", err)
		return
	}
	s.issueSignup(ctx, u.ID, email)
}

func (s *AccountService) issueSignup(ctx context.Context, id uint64, email string) {
	entry, err := s.Ledger.Issue(id, domain.PurposeSignup)
	if err != nil {
		s.logger().Error("issue signup code", "user_id", id, "error", err)
		return
	}
	s.send(ctx, email, entry)
}

// Login checks credentials. Unknown email, wrong password and a record that
// fails to decrypt all return ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	email := cryptox.NormalizeEmail(req.Email)

	u, err := s.Store.Users().GetUserByEmailHash(ctx, s.Cipher.Fingerprint(email))
	if errors.Is(err, store.ErrNotFound) {
		s.Metrics.Login("invalid")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		s.Metrics.Login("error")
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(req.Password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			s.logger().Error("stored password hash unusable", "user_id", u.ID, "error", err)
		}
		s.Metrics.Login("invalid")
		return LoginResult{}, ErrInvalidCredentials
	}

	profile, err := s.profile(u)
	if err != nil {
		s.Metrics.Login("invalid")
		return LoginResult{}, ErrInvalidCredentials
	}

	if req.IsAutoLogin {
		profile.TFAEnabled = nil
		return s.complete(u, profile, []string{jwtx.AMRPassword}, "auto")
	}

	if u.TFAEnabled {
		entry, err := s.Ledger.Issue(u.ID, domain.PurposeLogin)
		if err != nil {
			s.Metrics.Login("error")
			return LoginResult{}, fmt.Errorf("issue login code: %w", err)
		}
		s.inflight.Add(1)
		detached := context.WithoutCancel(ctx)
		slogx.Go(s.logger(), "send-login-code", func() {
			defer s.inflight.Done()
			s.send(detached, profile.Email, entry)
		})
		s.Metrics.Login("verification_required")
		return LoginResult{Profile: profile, VerificationRequired: true}, nil
	}

	return s.complete(u, profile, []string{jwtx.AMRPassword}, "ok")
}

// Verify consumes the pending code for userID and completes the login.
func (s *AccountService) Verify(ctx context.Context, userID uint64, code uint32) (LoginResult, error) {
	entry, err := s.Ledger.Verify(userID, code)
	if err != nil {
		return LoginResult{}, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, ErrVerificationNotFound
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	profile, err := s.profile(u)
	if err != nil {
		return LoginResult{}, ErrVerificationNotFound
	}

	amr := []string{jwtx.AMREmailOTP}
	if entry.Purpose == domain.PurposeLogin {
		amr = []string{jwtx.AMRPassword, jwtx.AMREmailOTP, jwtx.AMRMFA}
	}
	return s.complete(u, profile, amr, "verified")
}

// Profile returns the owner's view of userID, used for session lookups.
func (s *AccountService) Profile(ctx context.Context, userID uint64) (domain.Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("lookup user: %w", err)
	}
	return s.profile(u)
}

// DiscardUnconfirmed is the ledger expiry hook: an account whose signup code
// expired is deleted.
func (s *AccountService) DiscardUnconfirmed(ctx context.Context, entry domain.VerificationEntry) {
	if entry.Purpose != domain.PurposeSignup {
		return
	}
	err := s.Store.Users().DeleteUser(ctx, entry.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger().Debug("unconfirmed account already gone", "user_id", entry.UserID)
		return
	}
	if err != nil {
		s.logger().Error("delete unconfirmed account", "user_id", entry.UserID, "error", err)
		return
	}
	s.Metrics.AccountDiscarded()
	s.logger().Info("unconfirmed account deleted", "user_id", entry.UserID)
}

// Wait blocks until detached persistence and notification work has finished
// or ctx is done.
func (s *AccountService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AccountService) complete(u domain.User, profile domain.Profile, amr []string, result string) (LoginResult, error) {
	token, err := s.Sessions.Issue(u, amr)
	if err != nil {
		s.Metrics.Login("error")
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}
	s.Metrics.Login(result)
	return LoginResult{Profile: profile, Token: token}, nil
}

func (s *AccountService) profile(u domain.User) (domain.Profile, error) {
	email, err := s.Cipher.Decrypt(u.EmailCiphertext)
	if err != nil {
		s.logger().Error("stored email failed authentication", "user_id", u.ID, "error", err)
		return domain.Profile{}, err
	}
	p := domain.ProfileOf(u)
	p.Email = email
	return p, nil
}

func (s *AccountService) send(ctx context.Context, address string, entry domain.VerificationEntry) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, address, notify.VerificationBody(entry.Code)); err != nil {
		s.logger().Warn("send verification code", "user_id", entry.UserID, "purpose", entry.Purpose, "error", err)
	}
}

func (s *AccountService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AccountService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
