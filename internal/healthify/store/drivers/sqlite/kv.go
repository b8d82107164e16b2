package sqlite

import (
	"context"
	"time"
)

type kvRepo struct {
	q dbtx
}

func (r *kvRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return value, nil
}

func (r *kvRepo) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, toMillis(time.Now()))
	return err
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}
