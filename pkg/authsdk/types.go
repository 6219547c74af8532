package authsdk

import "github.com/aussiebroadwan/messenger/pkg/httpx"

// BirthdayLayout is the wire format of birthdays.
const BirthdayLayout = "2006-01-02"

// ============================================================================
// Envelope
// ============================================================================

// Response is the envelope every endpoint answers with. Data is only
// meaningful when IsSuccess is true.
type Response[T any] struct {
	IsSuccess   bool               `json:"isSuccess"`
	Data        T                  `json:"data"`
	APIError    *httpx.APIError    `json:"apiError,omitempty"`
	FieldErrors []httpx.FieldError `json:"fieldErrors"`
}

// ============================================================================
// Account Types
// ============================================================================

// CreateAccountRequest is the body of POST /auth/create.
type CreateAccountRequest struct {
	// Email is the login address. It is stored encrypted.
	Email string `json:"email"`

	// Password is the plaintext password (min 8, max 128 characters)
	Password string `json:"password"`

	// Username is the public, unique handle
	Username string `json:"username"`

	Biography string `json:"biography"`

	// ProfilePicture is raw image bytes, base64 encoded on the wire
	ProfilePicture []byte `json:"profilePicture"`

	// TFAEnabled turns on emailed login codes
	TFAEnabled bool `json:"tfaEnabled"`

	// Birthday in YYYY-MM-DD form
	Birthday string `json:"birthday"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// IsAutoLogin marks a login replayed from stored credentials. Such logins
	// skip the emailed code and report tfaEnabled as null.
	IsAutoLogin bool `json:"isAutoLogin"`
}

// VerifyRequest is the body of POST /auth/verify.
type VerifyRequest struct {
	VerificationCode uint32 `json:"verificationCode"`
	UserID           uint64 `json:"userId"`
}

// UserResponse is the owner's view of an account.
type UserResponse struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	Biography      string `json:"biography"`
	ProfilePicture []byte `json:"profilePicture"`

	// TFAEnabled is null after an auto-login
	TFAEnabled *bool  `json:"tfaEnabled"`
	Birthday   string `json:"birthday"`

	// Token is the session token. Empty while a verification code is pending.
	Token string `json:"token,omitempty"`

	// VerificationRequired is set when a login code was emailed and
	// POST /auth/verify must follow.
	VerificationRequired bool `json:"verificationRequired,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains the status of individual components (readyz only)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
// Used in the /readyz endpoint to indicate the status of each component.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// WriteQueue reports accounts still waiting to be persisted
	WriteQueue string `json:"writeQueue"`

	// PendingCodes is the number of live verification codes
	PendingCodes int `json:"pendingCodes"`
}
