package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
	"github.com/aussiebroadwan/messenger/pkg/idx"
	"github.com/aussiebroadwan/messenger/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var sessionKey = []byte("0123456789abcdef0123456789abcdef")

type fakeAccounts struct {
	created   []domain.NewAccount
	createErr error
	login     func(service.LoginRequest) (service.LoginResult, error)
	verify    func(userID uint64, code uint32) (service.LoginResult, error)
	profiles  map[uint64]domain.Profile
}

func (f *fakeAccounts) Create(_ context.Context, acct domain.NewAccount) (uint64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, acct)
	return 1234567890123456789, nil
}

func (f *fakeAccounts) Login(_ context.Context, req service.LoginRequest) (service.LoginResult, error) {
	return f.login(req)
}

func (f *fakeAccounts) Verify(_ context.Context, userID uint64, code uint32) (service.LoginResult, error) {
	return f.verify(userID, code)
}

func (f *fakeAccounts) Profile(_ context.Context, userID uint64) (domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.Profile{}, fmt.Errorf("lookup user: %w", store.ErrNotFound)
	}
	return p, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixedLen int

func (n fixedLen) Len() int { return int(n) }

type routerHarness struct {
	router   *Router
	accounts *fakeAccounts
	metrics  *metrics.Metrics
	signer   *jwtx.HS256Signer
}

var clientSeq atomic.Int64

func newRouterHarness(t *testing.T, db Pinger) *routerHarness {
	t.Helper()

	m, err := metrics.New(nil)
	require.NoError(t, err)
	signer, err := jwtx.NewSignerHS256("session", sessionKey)
	require.NoError(t, err)

	h := &routerHarness{accounts: &fakeAccounts{}, metrics: m, signer: signer}
	h.router = NewRouter(
		jwtx.NewVerifierHS256("session", sessionKey, jwtx.VerifyOptions{Issuer: "messenger-auth"}),
		"test",
		db,
		m,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	h.router.Accounts = h.accounts
	h.router.Queue = fixedLen(2)
	h.router.Ledger = fixedLen(3)
	h.router.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	h.router.ApplyRoutes()
	return h
}

// do sends a request from a fresh client address so rate limits never trip.
func (h *routerHarness) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", clientSeq.Add(1)))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) authsdk.Response[T] {
	t.Helper()
	var env authsdk.Response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func validCreate() authsdk.CreateAccountRequest {
	return authsdk.CreateAccountRequest{
		Email:          "alice@example.com",
		Password:       "correct horse",
		Username:       "alice",
		Biography:      "hello",
		ProfilePicture: []byte{0x89, 0x50},
		TFAEnabled:     true,
		Birthday:       "1990-04-02",
	}
}

func TestPing(t *testing.T) {
	h := newRouterHarness(t, fakePinger{})

	rec := h.do(t, http.MethodGet, "/auth/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[bool](t, rec)
	require.True(t, env.IsSuccess)
	require.True(t, env.Data)
	require.Nil(t, env.APIError)
	require.Empty(t, env.FieldErrors)
}

func TestCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodPost, "/auth/create", validCreate())
		require.Equal(t, http.StatusOK, rec.Code)
		env := decode[uint64](t, rec)
		require.True(t, env.IsSuccess)
		require.Equal(t, uint64(1234567890123456789), env.Data)

		require.Len(t, h.accounts.created, 1)
		got := h.accounts.created[0]
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, "alice", got.Username)
		require.True(t, got.TFAEnabled)
		require.Equal(t, []byte{0x89, 0x50}, got.ProfilePicture)
		require.Equal(t, time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC), got.Birthday)
	})

	t.Run("validation errors", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})
		req := validCreate()
		req.Email = "nope"
		req.Password = "short"

		rec := h.do(t, http.MethodPost, "/auth/create", req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode[any](t, rec)
		require.False(t, env.IsSuccess)
		require.Equal(t, []httpx.FieldError{
			{Field: "email", Message: "not a valid email address"},
			{Field: "password", Message: "too short (min 8)"},
		}, env.FieldErrors)
		require.Empty(t, h.accounts.created)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodPost, "/auth/create", `{"email":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Invalid request body", decode[any](t, rec).APIError.Message)
	})

	errCases := []struct {
		name    string
		err     error
		status  int
		message string
		fields  []httpx.FieldError
	}{
		{
			name:    "email taken",
			err:     &service.ConflictError{Fields: []string{store.FieldEmail}},
			status:  http.StatusConflict,
			message: "Email already in use",
			fields:  []httpx.FieldError{{Field: "Email", Message: "Email already in use"}},
		},
		{
			name:    "both taken",
			err:     &service.ConflictError{Fields: []string{store.FieldEmail, store.FieldUsername}},
			status:  http.StatusConflict,
			message: "Email already in use",
			fields: []httpx.FieldError{
				{Field: "Email", Message: "Email already in use"},
				{Field: "Username", Message: "Username already in use"},
			},
		},
		{
			name:    "clock regression",
			err:     fmt.Errorf("allocate id: %w", idx.ErrClockRegression),
			status:  http.StatusServiceUnavailable,
			message: "Service temporarily unavailable",
			fields:  []httpx.FieldError{},
		},
		{
			name:    "store outage",
			err:     fmt.Errorf("check availability: %w", store.ErrTransient),
			status:  http.StatusServiceUnavailable,
			message: "Service temporarily unavailable",
			fields:  []httpx.FieldError{},
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "Internal server error",
			fields:  []httpx.FieldError{},
		},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouterHarness(t, fakePinger{})
			h.accounts.createErr = tt.err

			rec := h.do(t, http.MethodPost, "/auth/create", validCreate())
			require.Equal(t, tt.status, rec.Code)
			env := decode[any](t, rec)
			require.False(t, env.IsSuccess)
			require.Equal(t, &httpx.APIError{StatusCode: tt.status, Message: tt.message}, env.APIError)
			require.Equal(t, tt.fields, env.FieldErrors)
		})
	}
}

func TestLogin(t *testing.T) {
	tfa := true

	t.Run("invalid credentials", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})
		h.accounts.login = func(service.LoginRequest) (service.LoginResult, error) {
			return service.LoginResult{}, service.ErrInvalidCredentials
		}

		rec := h.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "a@b.c", Password: "x"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "Invalid email or password", decode[any](t, rec).APIError.Message)
	})

	t.Run("verification required", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})
		h.accounts.login = func(req service.LoginRequest) (service.LoginResult, error) {
			require.Equal(t, "a@b.c", req.Email)
			require.False(t, req.IsAutoLogin)
			return service.LoginResult{
				Profile:              domain.Profile{ID: 7, Username: "bob", TFAEnabled: &tfa},
				VerificationRequired: true,
			}, nil
		}

		rec := h.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "a@b.c", Password: "x"})
		require.Equal(t, http.StatusOK, rec.Code)
		user := decode[authsdk.UserResponse](t, rec).Data
		require.Equal(t, uint64(7), user.ID)
		require.True(t, user.VerificationRequired)
		require.Empty(t, user.Token)
		require.True(t, *user.TFAEnabled)
	})

	t.Run("auto login reports null tfa", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})
		h.accounts.login = func(req service.LoginRequest) (service.LoginResult, error) {
			require.True(t, req.IsAutoLogin)
			return service.LoginResult{
				Profile: domain.Profile{ID: 7, Username: "bob", Birthday: time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)},
				Token:   "tok",
			}, nil
		}

		rec := h.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "a@b.c", Password: "x", IsAutoLogin: true})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"tfaEnabled":null`)
		user := decode[authsdk.UserResponse](t, rec).Data
		require.Equal(t, "tok", user.Token)
		require.Equal(t, "1990-04-02", user.Birthday)
		require.Equal(t, []byte{}, user.ProfilePicture)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Len(t, decode[any](t, rec).FieldErrors, 2)
	})
}

func TestVerify(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"mismatch", service.ErrVerificationMismatch, http.StatusBadRequest, "Verification code does not match"},
		{"not found", service.ErrVerificationNotFound, http.StatusNotFound, "No verification code found for this user"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouterHarness(t, fakePinger{})
			h.accounts.verify = func(uint64, uint32) (service.LoginResult, error) {
				return service.LoginResult{}, tt.err
			}

			rec := h.do(t, http.MethodPost, "/auth/verify", authsdk.VerifyRequest{UserID: 7, VerificationCode: 12345678})
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.message, decode[any](t, rec).APIError.Message)
		})
	}

	t.Run("success", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})
		h.accounts.verify = func(userID uint64, code uint32) (service.LoginResult, error) {
			require.Equal(t, uint64(7), userID)
			require.Equal(t, uint32(1234), code)
			return service.LoginResult{Profile: domain.Profile{ID: 7, Email: "a@b.c"}, Token: "tok"}, nil
		}

		rec := h.do(t, http.MethodPost, "/auth/verify", `{"verificationCode":1234,"userId":7}`)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decode[authsdk.UserResponse](t, rec).Data
		require.Equal(t, "tok", user.Token)
		require.Equal(t, "a@b.c", user.Email)
	})

	t.Run("missing user id", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodPost, "/auth/verify", `{"verificationCode":1234}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, []httpx.FieldError{{Field: "userId", Message: "required"}}, decode[any](t, rec).FieldErrors)
	})
}

func TestMe(t *testing.T) {
	h := newRouterHarness(t, fakePinger{})
	h.accounts.profiles = map[uint64]domain.Profile{7: {ID: 7, Username: "bob", Email: "a@b.c"}}

	mint := func(userID uint64) string {
		tok, err := h.signer.Sign(jwtx.NewSessionClaims(userID, "bob", nil, time.Hour, "messenger-auth", nil, time.Now()))
		require.NoError(t, err)
		return tok
	}

	rec := h.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer "+mint(7))
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[authsdk.UserResponse](t, rec).Data
	require.Equal(t, "bob", user.Username)
	require.Empty(t, user.Token)

	rec = h.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer "+mint(8))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouting_EnvelopeErrors(t *testing.T) {
	h := newRouterHarness(t, fakePinger{})

	rec := h.do(t, http.MethodGet, "/auth/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Route not found", decode[any](t, rec).APIError.Message)

	rec = h.do(t, http.MethodGet, "/auth/create", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	require.Equal(t, "Method not allowed", decode[any](t, rec).APIError.Message)
}

func TestHealth(t *testing.T) {
	t.Run("livez", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodGet, "/livez", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var health authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Status)
		require.Equal(t, "test", health.Version)
	})

	t.Run("readyz ok", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{})

		rec := h.do(t, http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var health authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "ok", health.Status)
		require.Equal(t, &authsdk.HealthChecks{Database: "ok", WriteQueue: "2 pending", PendingCodes: 3}, health.Checks)
	})

	t.Run("readyz database down", func(t *testing.T) {
		h := newRouterHarness(t, fakePinger{err: store.ErrTransient})

		rec := h.do(t, http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var health authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		require.Equal(t, "degraded", health.Status)
		require.Contains(t, health.Checks.Database, "error:")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newRouterHarness(t, fakePinger{})
	h.do(t, http.MethodGet, "/auth/ping", nil)

	rec := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/auth/ping"`)
}

func TestLoginRateLimitedByEmail(t *testing.T) {
	h := newRouterHarness(t, fakePinger{})
	h.accounts.login = func(service.LoginRequest) (service.LoginResult, error) {
		return service.LoginResult{}, service.ErrInvalidCredentials
	}

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"`+email+`","password":"guess"}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec.Code
	}

	for range httpx.StrictLimit.Burst {
		require.Equal(t, http.StatusNotFound, send("victim@example.com"))
	}
	require.Equal(t, http.StatusTooManyRequests, send("victim@example.com"))
	require.Equal(t, http.StatusNotFound, send("other@example.com"))
}
