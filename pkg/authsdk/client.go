package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the messenger authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping reports whether the auth API is answering.
func (c *SDKClient) Ping(ctx context.Context) (bool, error) {
	return call[bool](ctx, c, get("/auth/ping", ""))
}

// CreateAccount registers a new account and returns its id. The account is
// persisted asynchronously and a confirmation code is emailed; an account
// whose code is never confirmed is removed when the code expires.
func (c *SDKClient) CreateAccount(ctx context.Context, req CreateAccountRequest) (uint64, error) {
	return call[uint64](ctx, c, post("/auth/create", req))
}

// Login checks credentials. When the account has two-factor enabled the
// result has VerificationRequired set and no token; finish with Verify.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*UserResponse, error) {
	user, err := call[UserResponse](ctx, c, post("/auth/login", req))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Verify submits an emailed code for userID.
func (c *SDKClient) Verify(ctx context.Context, userID uint64, code uint32) (*UserResponse, error) {
	user, err := call[UserResponse](ctx, c, post("/auth/verify", VerifyRequest{VerificationCode: code, UserID: userID}))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AuthenticateWithPassword logs in and returns a Session. It fails with a
// *VerificationRequiredError when a code must be submitted first; use
// AuthenticateWithCode for that step.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := c.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if user.VerificationRequired {
		return nil, &VerificationRequiredError{UserID: user.ID}
	}
	return newSession(c, user)
}

// AuthenticateWithCode completes a pending login or signup confirmation.
func (c *SDKClient) AuthenticateWithCode(ctx context.Context, userID uint64, code uint32) (*Session, error) {
	user, err := c.Verify(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	return newSession(c, user)
}
