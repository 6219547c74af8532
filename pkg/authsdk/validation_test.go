package authsdk

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validAccount() CreateAccountRequest {
	return CreateAccountRequest{
		Email:    "alice@example.com",
		Password: "hunter22!",
		Username: "alice",
		Birthday: "1990-04-01",
	}
}

func TestCreateAccountRequest_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*CreateAccountRequest)
		field  string
		reason string
	}{
		{name: "missing email", mutate: func(r *CreateAccountRequest) { r.Email = "" }, field: "email", reason: requiredReason},
		{name: "bad email", mutate: func(r *CreateAccountRequest) { r.Email = "alice" }, field: "email", reason: "not a valid email address"},
		{name: "display name email", mutate: func(r *CreateAccountRequest) { r.Email = "Alice <alice@example.com>" }, field: "email", reason: "not a valid email address"},
		{name: "short password", mutate: func(r *CreateAccountRequest) { r.Password = "short" }, field: "password", reason: "too short (min 8)"},
		{name: "long password", mutate: func(r *CreateAccountRequest) { r.Password = strings.Repeat("x", 129) }, field: "password", reason: "too long (max 128)"},
		{name: "missing username", mutate: func(r *CreateAccountRequest) { r.Username = "" }, field: "username", reason: requiredReason},
		{name: "padded username", mutate: func(r *CreateAccountRequest) { r.Username = " alice" }, field: "username", reason: "must not start or end with spaces"},
		{name: "short username", mutate: func(r *CreateAccountRequest) { r.Username = "al" }, field: "username", reason: "must be 3-32 characters"},
		{name: "bad username chars", mutate: func(r *CreateAccountRequest) { r.Username = "al ice" }, field: "username", reason: onlyUsername},
		{name: "long biography", mutate: func(r *CreateAccountRequest) { r.Biography = strings.Repeat("b", 501) }, field: "biography", reason: "too long (max 500)"},
		{name: "missing birthday", mutate: func(r *CreateAccountRequest) { r.Birthday = "" }, field: "birthday", reason: requiredReason},
		{name: "bad birthday", mutate: func(r *CreateAccountRequest) { r.Birthday = "01/04/1990" }, field: "birthday", reason: "must be YYYY-MM-DD"},
		{name: "future birthday", mutate: func(r *CreateAccountRequest) { r.Birthday = "2030-01-01" }, field: "birthday", reason: "must not be in the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validAccount()
			tt.mutate(&req)

			errs := req.Validate(now)
			require.Equal(t, map[string]string{tt.field: tt.reason}, errs)
		})
	}

	t.Run("valid", func(t *testing.T) {
		require.Nil(t, validAccount().Validate(now))
	})
}

func TestLoginRequest_Validate(t *testing.T) {
	t.Parallel()

	require.Nil(t, LoginRequest{Email: "a@b.c", Password: "x"}.Validate())
	require.Equal(t,
		map[string]string{"email": requiredReason, "password": requiredReason},
		LoginRequest{Email: "  "}.Validate(),
	)
}

func TestVerifyRequest_Validate(t *testing.T) {
	t.Parallel()

	require.Nil(t, VerifyRequest{UserID: 1}.Validate())
	require.Equal(t, map[string]string{"userId": requiredReason}, VerifyRequest{VerificationCode: 12345678}.Validate())
}

func TestParseBirthday(t *testing.T) {
	t.Parallel()

	b, err := ParseBirthday(" 1990-04-01 ")
	require.NoError(t, err)
	require.Equal(t, time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC), b)
}
