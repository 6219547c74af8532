package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of the process-wide field encryption key (AES-256).
const KeySize = 32

// ErrMissingKeyMaterial is returned when the passphrase or salt is empty. The
// service cannot protect PII without them and must not start.
var ErrMissingKeyMaterial = errors.New("cryptox: missing key material")

// Key is a derived secret. It lives for the process lifetime and is never
// persisted or logged.
type Key [KeySize]byte

// KDFParams configures Argon2id.
type KDFParams struct {
	Time    uint32 // passes over memory
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams returns 3 passes over 64 MiB with one lane per CPU.
//
// The thread count feeds into the derived bytes, so a deployment that moves
// between machines with different CPU counts must pin Threads explicitly.
func DefaultKDFParams() KDFParams {
	threads := runtime.NumCPU()
	if threads > 255 {
		threads = 255
	}
	return KDFParams{
		Time:    3,
		Memory:  64 * 1024,
		Threads: uint8(threads), // #nosec G115 - clamped above
	}
}

// DeriveKey stretches passphrase and salt into a Key using Argon2id.
func DeriveKey(passphrase, salt []byte, p KDFParams) (Key, error) {
	var key Key
	if len(passphrase) == 0 || len(salt) == 0 {
		return key, ErrMissingKeyMaterial
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return key, fmt.Errorf("cryptox: invalid kdf params %+v", p)
	}

	copy(key[:], argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, KeySize))
	return key, nil
}

// Subkey expands k into an independent key for the given purpose with
// HKDF-SHA256, so the cipher key is never reused for MACs or signatures.
func (k Key) Subkey(purpose string, size int) ([]byte, error) {
	out := make([]byte, size)
	r := hkdf.New(sha256.New, k[:], nil, []byte(purpose))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("cryptox: expand subkey %q: %w", purpose, err)
	}
	return out, nil
}
