package domain

import "time"

// User is the persisted account record. Email is only ever stored encrypted
// (EmailCiphertext) alongside a keyed fingerprint (EmailHash) for lookups.
type User struct {
	ID              uint64 // snowflake, immutable once assigned
	Username        string // unique
	EmailHash       []byte // unique, cryptox.FieldCipher.Fingerprint
	EmailCiphertext []byte // nonce(12) || tag(16) || ciphertext
	PasswordHash    []byte // digest(32) || salt(16)
	Biography       string
	ProfilePicture  []byte
	TFAEnabled      bool
	Birthday        time.Time // date only, UTC midnight
	CreatedAt       time.Time
}

// Profile is the outward view of a User returned to the account owner.
type Profile struct {
	ID             uint64
	Username       string
	Email          string // decrypted; empty unless the caller asked for it
	Biography      string
	ProfilePicture []byte
	TFAEnabled     *bool // nil when the login was an auto-login
	Birthday       time.Time
}

// NewAccount is the input to account creation.
type NewAccount struct {
	Email          string
	Password       string
	Username       string
	Biography      string
	ProfilePicture []byte
	TFAEnabled     bool
	Birthday       time.Time
}

// ProfileOf builds the owner's view of u. Email is left empty.
func ProfileOf(u User) Profile {
	tfa := u.TFAEnabled
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		Biography:      u.Biography,
		ProfilePicture: u.ProfilePicture,
		TFAEnabled:     &tfa,
		Birthday:       u.Birthday,
	}
}
