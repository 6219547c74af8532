package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/messenger/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// Session represents an authenticated account holding a session token.
// There is no refresh: once the token expires, log in again.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	token     string
	userID    uint64
	expiresAt time.Time
}

// newSession reads the expiry out of the token without verifying it. The
// server is the one that checks signatures.
func newSession(client *SDKClient, user *UserResponse) (*Session, error) {
	if user.Token == "" {
		return nil, errors.New("authsdk: response carried no session token")
	}

	var claims jwtx.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(user.Token, &claims); err != nil {
		return nil, fmt.Errorf("authsdk: parse session token: %w", err)
	}

	s := &Session{
		client: client,
		token:  user.Token,
		userID: user.ID,
	}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// UserID returns the id of the authenticated account.
func (s *Session) UserID() uint64 {
	return s.userID
}

// ExpiresAt returns the token expiry, or the zero time if the token has none.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Token returns the raw session token, or ErrSessionExpired.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.token, nil
}

// Me fetches the account behind this session.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}
	user, err := call[UserResponse](ctx, s.client, get("/auth/me", token))
	if err != nil {
		return nil, err
	}
	return &user, nil
}
