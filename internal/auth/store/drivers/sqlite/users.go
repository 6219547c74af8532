package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/messenger/internal/auth/domain"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
)

const birthdayLayout = "2006-01-02"

const userColumns = `id, username, email_hash, email_ciphertext, password_hash,
	biography, profile_picture, tfa_enabled, birthday, created_at`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(u.ID), // #nosec G115 - snowflake ids stay below 2^63 until 2093
		u.Username,
		u.EmailHash,
		u.EmailCiphertext,
		u.PasswordHash,
		u.Biography,
		nonNilBytes(u.ProfilePicture),
		u.TFAEnabled,
		u.Birthday.UTC().Format(birthdayLayout),
		createdAt.UnixMilli(),
	)
	return mapWriteError(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id uint64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		int64(id), // #nosec G115
	)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmailHash(ctx context.Context, emailHash []byte) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_hash = ?`,
		emailHash,
	)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, int64(id)) // #nosec G115
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

func (r *usersRepo) CheckAvailability(
	ctx context.Context,
	emailHash []byte,
	username string,
) (bool, bool, error) {
	var emailTaken, usernameTaken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM users WHERE email_hash = ?),
			EXISTS (SELECT 1 FROM users WHERE username = ?)`,
		emailHash, username,
	).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return false, false, mapWriteError(err)
	}
	return emailTaken, usernameTaken, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		id        int64
		birthday  string
		createdAt int64
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
		&birthday,
		&createdAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.ID = uint64(id) // #nosec G115
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	if u.Birthday, err = time.Parse(birthdayLayout, birthday); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
