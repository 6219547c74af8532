package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encrypted field layout is nonce(12) || tag(16) || ciphertext. This differs
// from the order cipher.AEAD.Seal produces (ciphertext || tag), so Encrypt and
// Decrypt shuffle the tag explicitly.
const (
	NonceSize = 12
	TagSize   = 16
	Overhead  = NonceSize + TagSize
)

// ErrAuthenticationFailure is returned when a blob does not authenticate under
// the current key: it was tampered with, truncated, or encrypted with a
// different key. Callers must treat the field as unreadable.
var ErrAuthenticationFailure = errors.New("cryptox: authentication failed")

const fingerprintPurpose = "messenger/email-fingerprint/v1"

// FieldCipher encrypts PII columns with AES-256-GCM. It is safe for
// concurrent use; the key is immutable after construction.
//
// Nonces are random, so a single key should stay well below 2^32 encryptions.
type FieldCipher struct {
	aead   cipher.AEAD
	macKey []byte
	rand   io.Reader
}

// NewFieldCipher builds a cipher from the derived process key.
func NewFieldCipher(key Key) (*FieldCipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create gcm: %w", err)
	}

	macKey, err := key.Subkey(fingerprintPurpose, sha256.Size)
	if err != nil {
		return nil, err
	}

	return &FieldCipher{aead: aead, macKey: macKey, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, Overhead+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *FieldCipher) Decrypt(blob []byte) (string, error) {
	if len(blob) < Overhead {
		return "", ErrAuthenticationFailure
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize:Overhead]
	ct := blob[Overhead:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailure
	}
	return string(plaintext), nil
}

// Fingerprint returns a deterministic keyed digest of an email address, used
// as the unique lookup column. Addresses are compared case-insensitively.
func (c *FieldCipher) Fingerprint(email string) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(NormalizeEmail(email)))
	return mac.Sum(nil)
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
