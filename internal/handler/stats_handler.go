package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/model"
)

// StatsServiceInterface は統計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	Counts(ctx context.Context) (model.Counts, error)
}

// StatsHandler はダッシュボード統計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
	logger  *slog.Logger
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{service: service, logger: logger}
}

type seriesResponse struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

type statsResponse struct {
	Counts model.Counts   `json:"counts"`
	Series seriesResponse `json:"series"`
}

// GetStats はユーザー、投稿、コメントの件数と円グラフ用の系列を返す。
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	labels, values := counts.Series()
	writeJSON(w, http.StatusOK, statsResponse{
		Counts: counts,
		Series: seriesResponse{Labels: labels, Values: values},
	})
}
