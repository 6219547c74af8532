package authsdk

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

const (
	requiredReason = "required"
	onlyUsername   = "must only contain a-z, A-Z, 0-9, _, . or -"
)

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validate checks if the account fields are valid.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (c CreateAccountRequest) Validate(now time.Time) map[string]string {
	errs := make(map[string]string)

	validateEmail(errs, c.Email)
	validatePassword(errs, c.Password)
	c.validateUsername(errs)
	c.validateBiography(errs)
	c.validateBirthday(errs, now)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks that both credentials are present.
func (l LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(l.Email) == "" {
		errs["email"] = requiredReason
	}
	if l.Password == "" {
		errs["password"] = requiredReason
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the user id is set. The code itself is checked by the server.
func (v VerifyRequest) Validate() map[string]string {
	if v.UserID == 0 {
		return map[string]string{"userId": requiredReason}
	}
	return nil
}

// ParseBirthday parses a YYYY-MM-DD birthday as UTC midnight.
func ParseBirthday(s string) (time.Time, error) {
	return time.ParseInLocation(BirthdayLayout, strings.TrimSpace(s), time.UTC)
}

func validateEmail(errs map[string]string, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs["email"] = requiredReason
	case len(email) > 254:
		errs["email"] = "too long (max 254)"
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			errs["email"] = "not a valid email address"
		}
	}
}

func validatePassword(errs map[string]string, pw string) {
	switch {
	case pw == "":
		errs["password"] = requiredReason
	case len(pw) < 8:
		errs["password"] = "too short (min 8)"
	case len(pw) > 128:
		errs["password"] = "too long (max 128)"
	}
}

func (c CreateAccountRequest) validateUsername(errs map[string]string) {
	username := strings.TrimSpace(c.Username)
	switch {
	case username == "":
		errs["username"] = requiredReason
	case username != c.Username:
		errs["username"] = "must not start or end with spaces"
	case len(username) < 3 || len(username) > 32:
		errs["username"] = "must be 3-32 characters"
	case !reUsername.MatchString(username):
		errs["username"] = onlyUsername
	}
}

func (c CreateAccountRequest) validateBiography(errs map[string]string) {
	if len(c.Biography) > 500 {
		errs["biography"] = "too long (max 500)"
	}
}

func (c CreateAccountRequest) validateBirthday(errs map[string]string, now time.Time) {
	if strings.TrimSpace(c.Birthday) == "" {
		errs["birthday"] = requiredReason
		return
	}
	b, err := ParseBirthday(c.Birthday)
	switch {
	case err != nil:
		errs["birthday"] = "must be YYYY-MM-DD"
	case b.After(now):
		errs["birthday"] = "must not be in the future"
	}
}
