package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, ident *model.Identity, id int) (*model.Profile, error)
}

// ProfileHandler はユーザープロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	logger  *slog.Logger
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// GetProfile はユーザーの公開プロフィールと地図用の座標を返す。
// 未ログインでも閲覧でき、usernameは本人と管理者の場合のみ含まれる。
// GET /api/users/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), middleware.IdentityFromContext(r.Context()), pathID(r))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
