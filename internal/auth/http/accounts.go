package http

import (
	"context"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/pkg/authsdk"
)

// Accounts is the slice of *service.AccountService the handlers need.
type Accounts interface {
	Create(ctx context.Context, acct domain.NewAccount) (uint64, error)
	Login(ctx context.Context, req service.LoginRequest) (service.LoginResult, error)
	Verify(ctx context.Context, userID uint64, code uint32) (service.LoginResult, error)
	Profile(ctx context.Context, userID uint64) (domain.Profile, error)
}

func userResponse(p domain.Profile, token string, verificationRequired bool) authsdk.UserResponse {
	picture := p.ProfilePicture
	if picture == nil {
		picture = []byte{}
	}
	var birthday string
	if !p.Birthday.IsZero() {
		birthday = p.Birthday.UTC().Format(authsdk.BirthdayLayout)
	}
	return authsdk.UserResponse{
		ID:                   p.ID,
		Username:             p.Username,
		Email:                p.Email,
		Biography:            p.Biography,
		ProfilePicture:       picture,
		TFAEnabled:           p.TFAEnabled,
		Birthday:             birthday,
		Token:                token,
		VerificationRequired: verificationRequired,
	}
}
