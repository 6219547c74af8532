package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
)

const userColumns = `id, username, email_hash, email_ciphertext, password_hash, biography, profile_picture, tfa_enabled, birthday, created_at`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	profilePicture := u.ProfilePicture
	if profilePicture == nil {
		profilePicture = []byte{}
	}

	_, err := r.db.ExecContext(ctx, query,
		int64(u.ID), // #nosec G115 - snowflake ids stay below 2^63 until 2093
		u.Username,
		u.EmailHash,
		u.EmailCiphertext,
		u.PasswordHash,
		u.Biography,
		profilePicture,
		u.TFAEnabled,
		u.Birthday.UTC(),
		createdAt.UTC(),
	)
	return mapWriteError(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id uint64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, int64(id))) // #nosec G115
}

func (r *usersRepo) GetUserByEmailHash(ctx context.Context, emailHash []byte) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_hash = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, emailHash))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *usersRepo) DeleteUser(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, int64(id)) // #nosec G115
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapWriteError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) CheckAvailability(ctx context.Context, emailHash []byte, username string) (bool, bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE email_hash = $1),
		        EXISTS (SELECT 1 FROM users WHERE username = $2)`

	var emailTaken, usernameTaken bool
	if err := r.db.QueryRowContext(ctx, query, emailHash, username).Scan(&emailTaken, &usernameTaken); err != nil {
		return false, false, mapWriteError(err)
	}
	return emailTaken, usernameTaken, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u  domain.User
		id int64
	)
	err := row.Scan(
		&id,
		&u.Username,
		&u.EmailHash,
		&u.EmailCiphertext,
		&u.PasswordHash,
		&u.Biography,
		&u.ProfilePicture,
		&u.TFAEnabled,
		&u.Birthday,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.ID = uint64(id) // #nosec G115
	u.Birthday = u.Birthday.UTC()
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
