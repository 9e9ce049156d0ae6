// Package identity は現在のIdentityをクライアントごとの永続ストレージに保持する。
// 有効期限はなく、Clearされるまで同じクライアントからのリクエストで読み出せる。
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/model"
)

// userKey はIdentityを保持するストレージキー。
const userKey = "user"

// Storage はクライアント単位のキー・バリューストレージ。
// 値が存在しない場合、Getはok=falseを返す。エラーはI/O失敗のみ。
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Provider は1リクエストのクライアントに紐づくStorageを返す。
type Provider interface {
	Storage(w http.ResponseWriter, r *http.Request) Storage
}

// Store はIdentityの保存・読み出し・消去を行う。
type Store struct {
	storage Storage
	logger  *slog.Logger
}

// NewStore はStoreを生成する。
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, logger: logger}
}

// ForRequest はProviderからリクエスト用のStoreを組み立てる。
func ForRequest(p Provider, w http.ResponseWriter, r *http.Request, logger *slog.Logger) *Store {
	return NewStore(p.Storage(w, r), logger)
}

// Save はIdentityを保存する。既存の値は置き換えられる。
// 不変条件を満たさないIdentityは保存しない。
func (s *Store) Save(ctx context.Context, ident model.Identity) error {
	if err := ident.Validate(); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	if err := s.storage.Set(ctx, userKey, string(data)); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// Load は保存済みのIdentityを返す。存在しない場合はnil, nilを返す。
// 読み出せない値や不変条件を満たさない値も存在しないものとして扱う。
func (s *Store) Load(ctx context.Context) (*model.Identity, error) {
	raw, ok, err := s.storage.Get(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var ident model.Identity
	if err := json.Unmarshal([]byte(raw), &ident); err != nil {
		s.logger.Warn("保存されたIdentityをデコードできないため無視します",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if err := ident.Validate(); err != nil {
		s.logger.Warn("保存されたIdentityが不正なため無視します",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	return &ident, nil
}

// Clear は保存済みのIdentityを消去する。存在しない場合も成功する。
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}
