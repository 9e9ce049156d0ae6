package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/postboard/internal/identity"
	"github.com/hitoshi/postboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	IdentityProvider  identity.Provider
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder // nil可

	// 運用エンドポイント
	HealthChecker  HealthChecker // nil可
	MetricsHandler http.Handler  // nilの場合 /metrics を公開しない

	// ドメインサービス
	AuthService         AuthServiceInterface
	PostService         PostServiceInterface
	ProfileService      ProfileServiceInterface
	StatsService        StatsServiceInterface
	RegistrationService RegistrationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS
//	  /api/*: Identity → RateLimit(General) → CSRF
//	    保護ルート: RequireIdentity
//
// /health と /metrics はAPIのミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, logger)
	postHandler := NewPostHandler(deps.PostService, logger)
	profileHandler := NewProfileHandler(deps.ProfileService, logger)
	statsHandler := NewStatsHandler(deps.StatsService, logger)
	registerHandler := NewRegisterHandler(deps.RegistrationService, logger)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.IdentityProvider, logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig, logger))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig, logger))

		// --- Identity不要のルート ---
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(middleware.RequireIdentity).Get("/me", authHandler.Me)
		})
		r.Get("/users/{id}", profileHandler.GetProfile)
		r.Get("/stats", statsHandler.GetStats)
		r.Post("/register", registerHandler.Register)

		// --- Identityが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity)

			r.Get("/posts", postHandler.ListPosts)
			r.Get("/posts/{id}", postHandler.GetPost)
		})
	})

	return r
}
