package identity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hitoshi/postboard/internal/model"
)

// mockStorage はテスト用のStorage実装。
type mockStorage struct {
	values   map[string]string
	getFn    func(ctx context.Context, key string) (string, bool, error)
	setFn    func(ctx context.Context, key, value string) error
	deleteFn func(ctx context.Context, key string) error
}

func newMockStorage() *mockStorage {
	return &mockStorage{values: make(map[string]string)}
}

func (m *mockStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockStorage) Set(ctx context.Context, key, value string) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	m.values[key] = value
	return nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	delete(m.values, key)
	return nil
}

var _ Storage = (*mockStorage)(nil)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestStore_SaveThenLoad(t *testing.T) {
	tests := []struct {
		name  string
		ident model.Identity
	}{
		{"管理者", model.NewAdminIdentity("Admin", "admin@admin.com")},
		{"一般ユーザー", model.Identity{ID: 3, Name: "Clementine Bauch", Email: "Nathan@yesenia.net"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			store := NewStore(newMockStorage(), newTestLogger(&buf))
			ctx := context.Background()

			if err := store.Save(ctx, tt.ident); err != nil {
				t.Fatalf("Save がエラーを返した: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load がエラーを返した: %v", err)
			}
			if got == nil || *got != tt.ident {
				t.Errorf("Load() = %+v, want %+v", got, tt.ident)
			}
		})
	}
}

func TestStore_SaveUsesUserKeyWithJSON(t *testing.T) {
	var buf bytes.Buffer
	storage := newMockStorage()
	store := NewStore(storage, newTestLogger(&buf))

	if err := store.Save(context.Background(), model.Identity{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz"}); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	want := `{"id":1,"name":"Leanne Graham","email":"Sincere@april.biz","isAdmin":false}`
	if storage.values["user"] != want {
		t.Errorf("stored value = %s, want %s", storage.values["user"], want)
	}
}

func TestStore_LoadWithoutSave_ReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	store := NewStore(newMockStorage(), newTestLogger(&buf))

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
}

func TestStore_SaveClearLoad_ReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	store := NewStore(newMockStorage(), newTestLogger(&buf))
	ctx := context.Background()

	if err := store.Save(ctx, model.Identity{ID: 2, Name: "Ervin Howell", Email: "Shanna@melissa.tv"}); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear がエラーを返した: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if got != nil {
		t.Errorf("Clear 後の Load() = %+v, want nil", got)
	}
}

func TestStore_ClearWhenEmpty_Succeeds(t *testing.T) {
	var buf bytes.Buffer
	store := NewStore(newMockStorage(), newTestLogger(&buf))

	if err := store.Clear(context.Background()); err != nil {
		t.Errorf("Clear がエラーを返した: %v", err)
	}
}

func TestStore_SaveReplacesExisting(t *testing.T) {
	var buf bytes.Buffer
	store := NewStore(newMockStorage(), newTestLogger(&buf))
	ctx := context.Background()

	first := model.Identity{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz"}
	second := model.NewAdminIdentity("Admin", "admin@admin.com")

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	got, _ := store.Load(ctx)
	if got == nil || *got != second {
		t.Errorf("Load() = %+v, want %+v", got, second)
	}
}

func TestStore_SaveInvalidIdentity_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	storage := newMockStorage()
	store := NewStore(storage, newTestLogger(&buf))

	invalid := []model.Identity{
		{ID: 5, Name: "x", IsAdmin: true},
		{ID: 0, Name: "x"},
	}
	for _, ident := range invalid {
		if err := store.Save(context.Background(), ident); err == nil {
			t.Errorf("Save(%+v) should return error", ident)
		}
	}
	if len(storage.values) != 0 {
		t.Errorf("不正なIdentityは保存されないべき: %v", storage.values)
	}
}

func TestStore_LoadCorruptValue_TreatedAsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"JSONでない", "not json"},
		{"型が違う", `{"id":"one"}`},
		{"管理者なのにIDがある", `{"id":3,"name":"x","email":"x@x.io","isAdmin":true}`},
		{"一般ユーザーなのにIDが0", `{"id":0,"name":"x","email":"x@x.io","isAdmin":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			storage := newMockStorage()
			storage.values["user"] = tt.raw
			store := NewStore(storage, newTestLogger(&buf))

			got, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("壊れた値はエラーではなく不在として扱うべき: %v", err)
			}
			if got != nil {
				t.Errorf("Load() = %+v, want nil", got)
			}
			if !bytes.Contains(buf.Bytes(), []byte(`"level":"WARN"`)) {
				t.Errorf("警告ログが出力されるべき: %s", buf.String())
			}
		})
	}
}

func TestStore_StorageErrors_AreReturned(t *testing.T) {
	ioErr := errors.New("connection refused")
	storage := &mockStorage{
		getFn:    func(context.Context, string) (string, bool, error) { return "", false, ioErr },
		setFn:    func(context.Context, string, string) error { return ioErr },
		deleteFn: func(context.Context, string) error { return ioErr },
	}
	var buf bytes.Buffer
	store := NewStore(storage, newTestLogger(&buf))
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ioErr) {
		t.Errorf("Load error = %v, want wrapped %v", err, ioErr)
	}
	if err := store.Save(ctx, model.NewAdminIdentity("Admin", "admin@admin.com")); !errors.Is(err, ioErr) {
		t.Errorf("Save error = %v, want wrapped %v", err, ioErr)
	}
	if err := store.Clear(ctx); !errors.Is(err, ioErr) {
		t.Errorf("Clear error = %v, want wrapped %v", err, ioErr)
	}
}
