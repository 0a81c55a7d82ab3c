package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PostgresStore keeps records in a single keyed table. The upsert per key is
// a single statement, so it carries the same atomicity guarantee as the file
// store's rename: readers see whole records only. Each write gets a fresh
// record_id for audit correlation with published lifecycle events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT data FROM leaderboard.records WHERE key = $1
	`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr(key, err)
	}
	return data, true, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO leaderboard.records (key, record_id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET record_id = $2, data = $3, updated_at = NOW()
	`, key, uuid.New(), data)
	return storageErr(key, err)
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM leaderboard.records WHERE key = $1
	`, key)
	return storageErr(key, err)
}
