package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/model"
)

// RegistrationServiceInterface は登録ハンドラーが必要とするサービスインターフェース。
type RegistrationServiceInterface interface {
	Submit(ctx context.Context, reg model.Registration) error
}

// RegisterHandler は登録フォームのHTTPハンドラー。
type RegisterHandler struct {
	service RegistrationServiceInterface
	logger  *slog.Logger
}

// NewRegisterHandler はRegisterHandlerを生成する。
func NewRegisterHandler(service RegistrationServiceInterface, logger *slog.Logger) *RegisterHandler {
	return &RegisterHandler{service: service, logger: logger}
}

type registerResponse struct {
	Status string `json:"status"`
}

// Register は登録フォームを検証し、受理した場合は202を返す。登録内容は保存しない。
// POST /api/register
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}

	if err := h.service.Submit(r.Context(), reg); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, registerResponse{Status: "accepted"})
}
