package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Password hash layout is digest(32) || salt(16). Stored rows depend on it, so
// none of these may change without a migration.
const (
	PasswordIterations = 100_000
	PasswordDigestSize = 32
	PasswordSaltSize   = 16
	PasswordHashSize   = PasswordDigestSize + PasswordSaltSize
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidHash      = errors.New("cryptox: invalid password hash")
)

// HashPassword derives a PBKDF2-HMAC-SHA256 digest of password under a fresh
// random salt and returns digest || salt.
func HashPassword(password string) ([]byte, error) {
	salt := make([]byte, PasswordSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptox: generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, PasswordIterations, PasswordDigestSize, sha256.New)

	out := make([]byte, 0, PasswordHashSize)
	out = append(out, digest...)
	out = append(out, salt...)
	return out, nil
}

// VerifyPassword recomputes the digest for password using the salt in stored
// and compares in constant time.
func VerifyPassword(password string, stored []byte) error {
	if len(stored) != PasswordHashSize {
		return ErrInvalidHash
	}

	expected, salt := stored[:PasswordDigestSize], stored[PasswordDigestSize:]
	computed := pbkdf2.Key([]byte(password), salt, PasswordIterations, PasswordDigestSize, sha256.New)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}
