package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// value is JSON, not JSONB: jsonb rejects the \u0000 escape that
// encoding/json emits for NUL characters in free text
const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      JSON NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// tables created by earlier releases used JSONB
const alterKVValueType = `ALTER TABLE kv_store ALTER COLUMN value TYPE JSON USING value::json`

// PostgresStorage keeps each key as a row of the kv_store table
type PostgresStorage struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage creates a PostgresStorage on an existing pool
func NewPostgresStorage(db *pgxpool.Pool, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the kv_store table if it does not exist
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createKVTable); err != nil {
		s.logger.Error("failed to create kv_store table", zap.Error(err))
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}

	var dataType string
	err := s.db.QueryRow(ctx,
		`SELECT data_type FROM information_schema.columns WHERE table_name = 'kv_store' AND column_name = 'value'`,
	).Scan(&dataType)
	if err != nil {
		return fmt.Errorf("failed to inspect kv_store table: %w", err)
	}
	if dataType == "jsonb" {
		s.logger.Info("converting kv_store.value from jsonb to json")
		if _, err := s.db.Exec(ctx, alterKVValueType); err != nil {
			return fmt.Errorf("failed to convert kv_store.value: %w", err)
		}
	}
	return nil
}

// GetItem selects the value for key
func (s *PostgresStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get item", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to get item %s: %w", key, err)
	}

	return value, nil
}

// SetItem upserts the value for key
func (s *PostgresStorage) SetItem(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2::json, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, key, string(value)); err != nil {
		s.logger.Error("failed to set item", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to set item %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes the row for key
func (s *PostgresStorage) RemoveItem(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`

	if _, err := s.db.Exec(ctx, query, key); err != nil {
		s.logger.Error("failed to remove item", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to remove item %s: %w", key, err)
	}

	return nil
}

// Ping checks database connectivity
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
