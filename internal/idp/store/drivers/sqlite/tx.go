package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                   { return &usersRepo{q: t.q} }
func (t *txStore) RelyingParties() store.RelyingParties { return &relyingPartiesRepo{q: t.q, atomic: t.atomic} }
func (t *txStore) Credentials() store.Credentials       { return &credentialsRepo{q: t.q} }
func (t *txStore) SigningKeys() store.SigningKeys       { return &signingKeysRepo{q: t.q} }

// atomic reuses the open transaction.
func (t *txStore) atomic(ctx context.Context, fn func(q *gen.Queries) error) error {
	return fn(t.q)
}

// ApplyMigrations is a no-op inside a transaction.
func (t *txStore) ApplyMigrations() error { return nil }
