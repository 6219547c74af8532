package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Token is an opaque, lexicographically sortable identifier used where a
// process-local unique handle is needed (request ids, verification entries).
// It is never persisted as a primary key; user ids come from Snowflake.
type Token string

// ZeroToken is the empty token.
const ZeroToken Token = ""

// ErrInvalidToken reports a malformed token string.
var ErrInvalidToken = errors.New("idx: invalid token")

var (
	tokenMu      sync.Mutex
	tokenEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewToken returns a fresh token stamped with the current time.
func NewToken() Token {
	return NewTokenAt(time.Now().UTC())
}

// NewTokenAt returns a token stamped with t.
func NewTokenAt(t time.Time) Token {
	tokenMu.Lock()
	defer tokenMu.Unlock()

	return Token(ulid.MustNew(ulid.Timestamp(t), tokenEntropy).String())
}

// ParseToken validates s as a token.
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroToken, ErrInvalidToken
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return ZeroToken, ErrInvalidToken
	}
	return Token(s), nil
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool { return t == ZeroToken }

func (t Token) String() string { return string(t) }
