// Package stats はダッシュボードの件数集計を提供する。
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/postboard/internal/model"
)

// Directory は件数を数える対象の取得元インターフェース。
type Directory interface {
	ListUsers(ctx context.Context) ([]model.DirectoryUser, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
	ListComments(ctx context.Context) ([]model.Comment, error)
}

// Service は件数集計サービス。
type Service struct {
	dir    Directory
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(dir Directory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, logger: logger}
}

// Counts はユーザー数、投稿数、コメント数を並行して取得し、1つのCountsにまとめて返す。
// 3件すべてが揃った場合のみ結果を返し、1件でも失敗すればTransientErrorを返す。
// 失敗した時点で残りの問い合わせはコンテキスト経由でキャンセルされる。
func (s *Service) Counts(ctx context.Context) (model.Counts, error) {
	start := time.Now()

	// 各ゴルーチンは自分の変数にだけ書き込み、Wait後にまとめる
	var users, posts, comments int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.dir.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		users = len(list)
		return nil
	})
	g.Go(func() error {
		list, err := s.dir.ListPosts(gctx)
		if err != nil {
			return fmt.Errorf("posts: %w", err)
		}
		posts = len(list)
		return nil
	})
	g.Go(func() error {
		list, err := s.dir.ListComments(gctx)
		if err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		comments = len(list)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("件数の集計に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.Counts{}, fmt.Errorf("failed to count resources: %w", model.NewTransientError())
	}

	counts := model.Counts{Users: users, Posts: posts, Comments: comments}
	s.logger.Debug("件数を集計しました",
		slog.Int("users", counts.Users),
		slog.Int("posts", counts.Posts),
		slog.Int("comments", counts.Comments),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return counts, nil
}
