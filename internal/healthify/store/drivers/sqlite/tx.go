package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; the DB stays open

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) KV() store.KV             { return &kvRepo{q: t.tx} }
func (t *txStore) Profiles() store.Profiles { return &profilesRepo{q: t.tx} }
func (t *txStore) Meals() store.Meals       { return &mealsRepo{q: t.tx} }
func (t *txStore) Water() store.Water       { return &waterRepo{q: t.tx} }
func (t *txStore) Weights() store.Weights   { return &weightsRepo{q: t.tx} }
func (t *txStore) Activity() store.Activity { return &activityRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
