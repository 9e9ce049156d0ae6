package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresClientStorageRepo はPostgreSQLを使用したクライアントストレージのリポジトリ。
type PostgresClientStorageRepo struct {
	db DBTX
}

// NewPostgresClientStorageRepo はPostgresClientStorageRepoを生成する。
func NewPostgresClientStorageRepo(db DBTX) *PostgresClientStorageRepo {
	return &PostgresClientStorageRepo{db: db}
}

// Get は指定クライアント・キーの値を取得する。
func (r *PostgresClientStorageRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client storage value: %w", err)
	}
	return value, true, nil
}

// Set は値をUPSERTする。
func (r *PostgresClientStorageRepo) Set(ctx context.Context, clientID, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (client_id, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set client storage value: %w", err)
	}
	return nil
}

// Delete は値を削除する。
func (r *PostgresClientStorageRepo) Delete(ctx context.Context, clientID, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete client storage value: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ClientStorageRepository = (*PostgresClientStorageRepo)(nil)
