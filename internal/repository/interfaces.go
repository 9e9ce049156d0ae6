// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
)

// ClientStorageRepository はクライアント単位のキー・バリューの永続化インターフェース。
// ブラウザごとのclient_id（UUID）をキーに、Identityなどの値を保持する。
type ClientStorageRepository interface {
	// Get は値を取得する。見つからない場合はok=falseを返す。
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)

	// Set は値を作成または更新する。
	Set(ctx context.Context, clientID, key, value string) error

	// Delete は値を削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, clientID, key string) error
}

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
