package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/auth"
	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, store auth.IdentityStore, email, password string) (*model.Identity, error)
	Logout(ctx context.Context, store auth.IdentityStore) error
	Current(ctx context.Context, store auth.IdentityStore) (*model.Identity, error)
}

// AuthHandler はログイン、ログアウト、現在のIdentity取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	logger  *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User     *model.Identity `json:"user"`
	Redirect string          `json:"redirect"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// Login は資格情報を検証し、成功時にIdentityを保存する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		h.logger.Error("identity store is not available in request context")
		middleware.WriteInternalServerError(w)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ident, err := h.service.Login(r.Context(), store, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: ident, Redirect: model.RedirectPosts})
}

// Logout は保存済みのIdentityを消去する。未ログインでも成功する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		h.logger.Error("identity store is not available in request context")
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.service.Logout(r.Context(), store); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, redirectResponse{Redirect: model.RedirectLogin})
}

// Me は現在のIdentityを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	ident, err := h.service.Current(r.Context(), store)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ident)
}
