package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/messenger/internal/auth/store"
)

// txStore scopes the repositories to one transaction. It cannot begin
// another transaction, ping or migrate.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users { return &usersRepo{db: t.tx} }

func (t *txStore) Commit() error   { return mapWriteError(t.tx.Commit()) }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (*txStore) Tx(context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (*txStore) WithTx(context.Context, func(store.Tx) error) error { return sql.ErrTxDone }

func (*txStore) Ping(context.Context) error { return nil }
func (*txStore) ApplyMigrations() error     { return nil }
func (*txStore) Close() error               { return nil }
