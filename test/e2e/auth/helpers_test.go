package auth_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/messenger/internal/auth/app"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
)

/*
 * Common helpers for auth service end-to-end tests. Each test gets its own
 * application on a fresh sqlite file, served through httptest, with a
 * notifier that captures the emailed codes.
 */

const (
	testPassword = "Password123!"
	testBirthday = "1990-04-01"
)

var codePattern = regexp.MustCompile(`\b(\d{8})\b`)

// inbox is a notify.Notifier that keeps every message per address.
type inbox struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newInbox() *inbox {
	return &inbox{messages: make(map[string][]string)}
}

func (i *inbox) Send(_ context.Context, address, body string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages[address] = append(i.messages[address], body)
	return nil
}

func (i *inbox) count(address string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.messages[address])
}

// waitForCode blocks until address has received its n-th message and returns
// the code in it.
func (i *inbox) waitForCode(t *testing.T, address string, n int) uint32 {
	t.Helper()

	require.Eventually(t, func() bool { return i.count(address) >= n },
		5*time.Second, 10*time.Millisecond, "no message %d for %s", n, address)

	i.mu.Lock()
	body := i.messages[address][n-1]
	i.mu.Unlock()

	match := codePattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "message carries no code: %q", body)
	code, err := strconv.ParseUint(match[1], 10, 32)
	require.NoError(t, err)
	return uint32(code)
}

type serviceOption func(*app.Config)

func withVerificationTTL(d time.Duration) serviceOption {
	return func(c *app.Config) { c.VerificationTTL = d }
}

// startService boots the full application and returns a client pointed at it.
func startService(t *testing.T, opts ...serviceOption) (*authsdk.SDKClient, *inbox) {
	t.Helper()

	cfg := app.Config{
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		Port:                 8080,
		ShutdownGracePeriod:  5 * time.Second,
		DatabaseDriver:       app.DriverSQLite,
		DatabaseFile:         filepath.Join(t.TempDir(), "auth.db"),
		EncryptionPassword:   "e2e encryption password",
		EncryptionSalt:       "e2e-salt",
		KDFTime:              1,
		KDFMemoryKiB:         8 * 1024,
		KDFThreads:           1,
		Issuer:               "messenger-auth",
		SessionTTL:           time.Hour,
		VerificationTTL:      time.Minute,
		WriteFirstRetryDelay: 50 * time.Millisecond,
		WriteRetryInterval:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	require.NoError(t, cfg.Validate())

	box := newInbox()
	application, err := app.New(cfg, app.WithNotifier(box))
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})

	return authsdk.NewSDKClient(server.URL), box
}

// newAccount returns a valid signup request whose username and email are
// derived from name.
func newAccount(name string, tfa bool) authsdk.CreateAccountRequest {
	return authsdk.CreateAccountRequest{
		Email:      name + "@example.com",
		Password:   testPassword,
		Username:   name,
		Biography:  "hello from " + name,
		TFAEnabled: tfa,
		Birthday:   testBirthday,
	}
}

// signUp creates an account, confirms it with the emailed code and returns
// the confirmed session.
func signUp(t *testing.T, client *authsdk.SDKClient, box *inbox, req authsdk.CreateAccountRequest) *authsdk.Session {
	t.Helper()

	n := box.count(req.Email) + 1
	id, err := client.CreateAccount(t.Context(), req)
	require.NoError(t, err, "create account")
	require.NotZero(t, id)

	code := box.waitForCode(t, req.Email, n)
	session, err := client.AuthenticateWithCode(t.Context(), id, code)
	require.NoError(t, err, "confirm account")
	require.Equal(t, id, session.UserID())

	return session
}

// assertStatus checks that err is a service error with the given status.
func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.True(t, authsdk.IsStatus(err, status), "expected status %d, got %v", status, err)
}
