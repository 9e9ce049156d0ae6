package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, ident *model.Identity, search string) ([]model.Post, error)
	Get(ctx context.Context, ident *model.Identity, id int) (*model.PostDetail, error)
}

// PostHandler は投稿一覧と投稿詳細のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	logger  *slog.Logger
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, logger *slog.Logger) *PostHandler {
	return &PostHandler{service: service, logger: logger}
}

type postListResponse struct {
	Posts []model.Post `json:"posts"`
}

// ListPosts は閲覧可能な投稿の一覧を返す。
// GET /api/posts?search=xxx
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())

	posts, err := h.service.List(r.Context(), ident, r.URL.Query().Get("search"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, postListResponse{Posts: posts})
}

// GetPost は投稿とコメントを返す。閲覧権限がない場合は投稿の内容を一切含めない。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())

	id := pathID(r)
	if id == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("投稿IDが不正です。"))
		return
	}

	detail, err := h.service.Get(r.Context(), ident, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
