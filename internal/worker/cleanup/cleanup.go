// Package cleanup はクライアントストレージの期限切れ行を削除するジョブを提供する。
// IDENTITY_STORAGE=postgres の場合、ブラウザを閉じたまま戻らないクライアントの
// Identityが残り続けるため、最終更新から保持期間を超えた行を定期的に削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetention はクライアントストレージ行の既定の保持期間（Cookieの最大寿命と同じ400日）。
const DefaultRetention = 400 * 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CleanupJob は保持期間を超過したclient_storage行の削除ジョブ。
// 削除対象がなくてもエラーにならず、何度実行しても結果は変わらない。
type CleanupJob struct {
	db        Executor
	logger    *slog.Logger
	Retention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionが0以下の場合はDefaultRetentionを使用する。
func NewCleanupJob(db Executor, logger *slog.Logger, retention time.Duration) *CleanupJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CleanupJob{
		db:        db,
		logger:    logger,
		Retention: retention,
	}
}

// Run はupdated_atが保持期間より古い行を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `DELETE FROM client_storage WHERE updated_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, retentionInterval(j.Retention))
	if err != nil {
		j.logger.Error("クライアントストレージのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.String("retention", j.Retention.String()),
		)
		return fmt.Errorf("クライアントストレージのクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("クライアントストレージのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.String("retention", j.Retention.String()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、その後intervalごとにRunを繰り返す。
// ctxがキャンセルされるまでブロックする。実行失敗はログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	// Run内でエラーログを出力済み
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

// retentionInterval はPostgreSQLのinterval型に渡す秒数表現を返す。
func retentionInterval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d/time.Second))
}
