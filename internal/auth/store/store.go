package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrTransient marks failures worth retrying: lost connections, a busy or
	// locked database, server shutdown. Drivers wrap the cause with it.
	ErrTransient = errors.New("store: transient failure")
)

// Unique columns reported by ConflictError.
const (
	FieldID       = "id"
	FieldEmail    = "email"
	FieldUsername = "username"
	FieldUnknown  = ""
)

// ConflictError is returned when a write violates a unique constraint. It
// matches ErrAlreadyExists with errors.Is.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	if e.Field == FieldUnknown {
		return "store: already exists"
	}
	return fmt.Sprintf("store: %s already exists", e.Field)
}

func (e *ConflictError) Unwrap() []error { return []error{ErrAlreadyExists, e.Err} }

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this and expose sub-repositories, so a Tx-scoped Store
// cannot open a nested transaction by accident.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts u. Unique violations come back as *ConflictError.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id uint64) (domain.User, error)

	// GetUserByEmailHash looks a user up by the keyed email fingerprint.
	GetUserByEmailHash(ctx context.Context, emailHash []byte) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// DeleteUser removes the user. A missing id yields ErrNotFound.
	DeleteUser(ctx context.Context, id uint64) error

	// CheckAvailability reports whether the email fingerprint or username are
	// already taken, in a single round trip.
	CheckAvailability(ctx context.Context, emailHash []byte, username string) (emailTaken, usernameTaken bool, err error)
}

// CreateUsers inserts all users in one transaction: either every record is
// stored or none is.
func CreateUsers(ctx context.Context, s Store, users []domain.User) error {
	return s.WithTx(ctx, func(tx Tx) error {
		for _, u := range users {
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				return fmt.Errorf("create user %d: %w", u.ID, err)
			}
		}
		return nil
	})
}
