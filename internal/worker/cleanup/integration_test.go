package cleanup

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/postboard/internal/database"
	"github.com/hitoshi/postboard/internal/repository"
)

// TestCleanupJob_Integration は実際のPostgreSQLで期限切れ行だけが削除されることを検証する。
// TEST_DATABASE_URL が未設定、または接続できない場合はスキップする。
func TestCleanupJob_Integration(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("database.Open() error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Ping(ctx, db, 2*time.Second); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if _, err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	const (
		staleClient = "11111111-1111-4111-8111-111111111111"
		freshClient = "22222222-2222-4222-8222-222222222222"
	)
	repo := repository.NewPostgresClientStorageRepo(db)
	for _, id := range []string{staleClient, freshClient} {
		if err := repo.Set(ctx, id, "user", `{"id":1}`); err != nil {
			t.Fatalf("repo.Set(%s) error: %v", id, err)
		}
	}
	t.Cleanup(func() {
		_ = repo.Delete(ctx, staleClient, "user")
		_ = repo.Delete(ctx, freshClient, "user")
	})

	if _, err := db.ExecContext(ctx,
		`UPDATE client_storage SET updated_at = now() - interval '3 days' WHERE client_id = $1`,
		staleClient,
	); err != nil {
		t.Fatalf("updated_at の更新に失敗: %v", err)
	}

	var buf bytes.Buffer
	job := NewCleanupJob(db, newTestLogger(&buf), 48*time.Hour)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, ok, err := repo.Get(ctx, staleClient, "user"); err != nil || ok {
		t.Errorf("期限切れの行が残っている: ok=%v err=%v", ok, err)
	}
	if _, ok, err := repo.Get(ctx, freshClient, "user"); err != nil || !ok {
		t.Errorf("期限内の行が削除された: ok=%v err=%v", ok, err)
	}
}
