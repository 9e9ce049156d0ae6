// Package database はデータベース接続とマイグレーション管理を提供する。
// スキーマはIDENTITY_STORAGE=postgres で使うclient_storageテーブルだけを持つ。
package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// client_storageスキーマのマイグレーションはバイナリに埋め込み、実行時にファイルを必要としない。
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func clientStorageSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded client_storage migrations: %w", err)
	}
	return src, nil
}

// NewMigrator は埋め込み済みのclient_storageマイグレーションを適用するmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := clientStorageSource()
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create client_storage migrator: %w", err)
	}

	return m, nil
}

// LatestVersion は埋め込まれたマイグレーションの最新バージョン番号を返す。
// DBには接続しない。
func LatestVersion() (uint, error) {
	src, err := clientStorageSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no embedded migrations: %w", err)
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read migration after %d: %w", version, err)
		}
		version = next
	}
}

// RunMigrations はclient_storageスキーマを最新まで上げ、適用後のバージョンを返す。
// すでに最新の場合もエラーにしない。
func RunMigrations(databaseURL string) (uint, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to migrate client_storage schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("client_storage schema is dirty at version %d", version)
	}

	return version, nil
}
