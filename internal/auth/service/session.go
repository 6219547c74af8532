package service

import (
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/pkg/jwtx"
)

// SessionIssuer mints the session token returned once a login is complete.
type SessionIssuer struct {
	Signer   jwtx.Signer
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      func() time.Time
}

func (s *SessionIssuer) Issue(u domain.User, amr []string) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	claims := jwtx.NewSessionClaims(u.ID, u.Username, amr, ttl, s.Issuer, s.Audience, now().UTC())
	return s.Signer.Sign(claims)
}
