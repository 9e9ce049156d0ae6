package identity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const clientIDCookieName = "pb_client_id"

// ClientStorageRepository はクライアントIDをキーにした値の永続化インターフェース。
// repository.PostgresClientStorageRepoとMemoryRepositoryが実装する。
type ClientStorageRepository interface {
	// Get は値を返す。存在しない場合はok=falseを返す。
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)
	// Set は値を作成または更新する。
	Set(ctx context.Context, clientID, key, value string) error
	// Delete は値を削除する。存在しない場合も成功する。
	Delete(ctx context.Context, clientID, key string) error
}

// ClientIDConfig はクライアントIDCookieの設定。
type ClientIDConfig struct {
	MaxAge time.Duration
	Secure bool
	Domain string
}

// ClientIDProvider はクライアントIDCookie（UUID v4）で識別したクライアントの値を
// リポジトリに保持する。クライアントIDは最初の書き込み時に発行する。
type ClientIDProvider struct {
	repo   ClientStorageRepository
	config ClientIDConfig
}

// NewClientIDProvider はClientIDProviderを生成する。
func NewClientIDProvider(repo ClientStorageRepository, config ClientIDConfig) *ClientIDProvider {
	return &ClientIDProvider{repo: repo, config: config}
}

// Storage はリクエストのクライアントIDに紐づくストレージを返す。
func (p *ClientIDProvider) Storage(w http.ResponseWriter, r *http.Request) Storage {
	s := &clientStorage{provider: p, w: w}
	if c, err := r.Cookie(clientIDCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			s.clientID = id.String()
		}
	}
	return s
}

type clientStorage struct {
	provider *ClientIDProvider
	w        http.ResponseWriter
	clientID string
}

func (s *clientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.clientID == "" {
		return "", false, nil
	}
	return s.provider.repo.Get(ctx, s.clientID, key)
}

func (s *clientStorage) Set(ctx context.Context, key, value string) error {
	if s.clientID == "" {
		s.issueClientID()
	}
	return s.provider.repo.Set(ctx, s.clientID, key, value)
}

func (s *clientStorage) Delete(ctx context.Context, key string) error {
	if s.clientID == "" {
		return nil
	}
	return s.provider.repo.Delete(ctx, s.clientID, key)
}

func (s *clientStorage) issueClientID() {
	s.clientID = uuid.New().String()
	http.SetCookie(s.w, &http.Cookie{
		Name:     clientIDCookieName,
		Value:    s.clientID,
		Path:     "/",
		Domain:   s.provider.config.Domain,
		MaxAge:   int(s.provider.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.provider.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// MemoryRepository はプロセス内のマップに値を保持するClientStorageRepository。
// プロセス終了で消えるため、開発とテスト用。
type MemoryRepository struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryRepository はMemoryRepositoryを生成する。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]map[string]string)}
}

func (m *MemoryRepository) Get(_ context.Context, clientID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[clientID][key]
	return v, ok, nil
}

func (m *MemoryRepository) Set(_ context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[clientID] == nil {
		m.values[clientID] = make(map[string]string)
	}
	m.values[clientID][key] = value
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[clientID], key)
	return nil
}

var (
	_ Provider                = (*ClientIDProvider)(nil)
	_ ClientStorageRepository = (*MemoryRepository)(nil)
)
