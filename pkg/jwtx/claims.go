package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL applies when an issuer is configured without a TTL.
const DefaultSessionTTL = 24 * time.Hour

// Values of the "amr" claim.
const (
	AMRPassword = "pwd" // password checked
	AMREmailOTP = "otp" // emailed code confirmed
	AMRMFA      = "mfa" // both of the above
)

// Claims carried by a session token. Subject holds the decimal user id.
type Claims struct {
	jwt.RegisteredClaims

	Username string   `json:"username,omitempty"`
	AMR      []string `json:"amr,omitempty"`
}

// NewSessionClaims returns claims for userID valid from now for ttl.
func NewSessionClaims(
	userID uint64,
	username string,
	amr []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	var jti [16]byte
	_, _ = rand.Read(jti[:])

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        base64.RawURLEncoding.EncodeToString(jti[:]),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(userID, 10),
			Audience:  audience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		AMR:      amr,
	}
}

// UserID parses the subject back into a user id.
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidClaim
	}
	return id, nil
}

// Check enforces the issuer, audience and validity window in opts at now.
// An empty Issuer or Audience in opts is not enforced. Audience passes when
// any expected value is present.
func (c *Claims) Check(opts VerifyOptions, now time.Time) error {
	if opts.Issuer != "" && c.Issuer != opts.Issuer {
		return ErrIssuer
	}
	if len(opts.Audience) > 0 && !slices.ContainsFunc(opts.Audience, func(aud string) bool {
		return slices.Contains(c.Audience, aud)
	}) {
		return ErrAudience
	}
	if exp := c.ExpiresAt; exp != nil && now.After(exp.Add(opts.Leeway)) {
		return ErrExpired
	}
	if nbf := c.NotBefore; nbf != nil && now.Before(nbf.Add(-opts.Leeway)) {
		return ErrNotYetValid
	}
	return nil
}
