// Package post は投稿一覧と投稿詳細の取得を提供する。
// 一般ユーザーには自分の投稿だけを返し、管理者には全件を返す。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/postboard/internal/access"
	"github.com/hitoshi/postboard/internal/directory"
	"github.com/hitoshi/postboard/internal/model"
)

// Directory は投稿とコメントの取得元インターフェース。
// directory.Clientが実装する。
type Directory interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id int) (*model.Post, error)
	ListPostComments(ctx context.Context, postID int) ([]model.Comment, error)
}

// Sanitizer は外部由来テキストからHTMLを取り除く。
type Sanitizer interface {
	StripTags(raw string) string
}

// DeniedRecorder は閲覧拒否の計測インターフェース。
type DeniedRecorder interface {
	RecordAccessDenied(resource string)
}

// Service は投稿の閲覧サービス。取得結果はキャッシュしない。
type Service struct {
	dir       Directory
	sanitizer Sanitizer
	recorder  DeniedRecorder
	logger    *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(dir Directory, sanitizer Sanitizer, recorder DeniedRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dir:       dir,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
	}
}

// List はIdentityが閲覧できる投稿を返す。
// searchが空でない場合はタイトルに大文字小文字を区別せず部分一致するものに絞り込む。
// 絞り込みはスコープ適用後に行うため、他人の投稿が検索で現れることはない。
func (s *Service) List(ctx context.Context, ident *model.Identity, search string) ([]model.Post, error) {
	if ident == nil {
		return nil, model.NewUnauthenticatedError()
	}

	// 1. 全投稿を取得
	posts, err := s.dir.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", model.NewTransientError())
	}

	// 2. Identityでスコープを適用
	visible := access.Visible(*ident, posts)

	// 3. テキストの整形とタイトル検索
	query := strings.ToLower(strings.TrimSpace(search))
	result := make([]model.Post, 0, len(visible))
	for _, p := range visible {
		p = s.cleanPost(p)
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		result = append(result, p)
	}

	return result, nil
}

// Get は投稿詳細とコメントを返す。
// アクセスガードを通過した後にのみコメントを取得する。
// 一般ユーザーには存在しない投稿もAccessDeniedとして返し、存在の有無を明かさない。
func (s *Service) Get(ctx context.Context, ident *model.Identity, id int) (*model.PostDetail, error) {
	if ident == nil {
		return nil, model.NewUnauthenticatedError()
	}

	// 1. 投稿を取得
	p, err := s.dir.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			if ident.IsAdmin {
				return nil, model.NewNotFoundError("投稿", id)
			}
			s.denied(ident, id)
			return nil, model.NewAccessDeniedError()
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, model.NewTransientError())
	}

	// 2. アクセスガード
	if err := access.Check(ident, p.OwnerID()); err != nil {
		s.denied(ident, id)
		return nil, err
	}

	// 3. コメントを取得
	comments, err := s.dir.ListPostComments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of post %d: %w", id, model.NewTransientError())
	}

	cleaned := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		c.Name = s.sanitizer.StripTags(c.Name)
		c.Body = s.sanitizer.StripTags(c.Body)
		cleaned = append(cleaned, c)
	}

	return &model.PostDetail{
		Post:     s.cleanPost(*p),
		Comments: cleaned,
	}, nil
}

func (s *Service) cleanPost(p model.Post) model.Post {
	p.Title = s.sanitizer.StripTags(p.Title)
	p.Body = s.sanitizer.StripTags(p.Body)
	return p
}

func (s *Service) denied(ident *model.Identity, postID int) {
	s.logger.Warn("投稿の閲覧を拒否しました",
		slog.Int("identity_id", ident.ID),
		slog.Int("post_id", postID),
	)
	if s.recorder != nil {
		s.recorder.RecordAccessDenied("post")
	}
}
