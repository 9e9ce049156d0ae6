package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/postboard/internal/auth"
	"github.com/hitoshi/postboard/internal/config"
	"github.com/hitoshi/postboard/internal/database"
	"github.com/hitoshi/postboard/internal/directory"
	"github.com/hitoshi/postboard/internal/handler"
	"github.com/hitoshi/postboard/internal/identity"
	"github.com/hitoshi/postboard/internal/logger"
	"github.com/hitoshi/postboard/internal/metrics"
	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/post"
	"github.com/hitoshi/postboard/internal/profile"
	"github.com/hitoshi/postboard/internal/registration"
	"github.com/hitoshi/postboard/internal/repository"
	"github.com/hitoshi/postboard/internal/security"
	"github.com/hitoshi/postboard/internal/stats"
	"github.com/hitoshi/postboard/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("identity_storage", cfg.IdentityStorage),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// server はserveモードで組み立てた依存関係を保持する。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
	db          *sql.DB // IDENTITY_STORAGE=postgres の場合のみ非nil
}

// close はバックグラウンド処理とDB接続を解放する。
func (s *server) close() {
	s.rateLimiter.Stop()
	if s.db != nil {
		s.db.Close()
	}
}

// buildServer は設定から全依存関係をワイヤリングし、ルーターを構築する。
func buildServer(cfg *config.Config, log *slog.Logger) (*server, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. Identityの保存先
	provider, db, err := newIdentityProvider(cfg)
	if err != nil {
		return nil, err
	}

	// 3. 外部ディレクトリクライアント
	guard := security.NewOutboundGuard()
	httpClient := &http.Client{Timeout: cfg.DirectoryTimeout}
	if cfg.DirectorySafeClient {
		httpClient = guard.NewSafeClient(cfg.DirectoryTimeout)
	}
	dirClient := directory.NewClient(httpClient, log, cfg.DirectoryBaseURL, collector)

	// 4. ドメインサービス
	verifier := auth.NewDirectoryVerifier(dirClient, auth.AdminCredential{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, log)
	authService := auth.NewService(verifier, collector, log)
	postService := post.NewService(dirClient, security.NewTextSanitizer(), collector, log)
	profileService := profile.NewService(dirClient, guard, log)
	statsService := stats.NewService(dirClient, log)
	registrationService := registration.NewService(log)

	// 5. レート制限（configのreq/minをreq/secに変換する）
	rlConfig := middleware.DefaultRateLimiterConfig()
	rlConfig.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlConfig.GeneralBurst = cfg.RateLimitGeneral
	rlConfig.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rlConfig.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rlConfig, log)

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            log,
		IdentityProvider:  provider,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		StatusRecorder: collector,

		MetricsHandler: metrics.Handler(registry),

		AuthService:         authService,
		PostService:         postService,
		ProfileService:      profileService,
		StatsService:        statsService,
		RegistrationService: registrationService,
	}
	if db != nil {
		deps.HealthChecker = db
	}

	return &server{
		handler:     handler.NewRouter(deps),
		rateLimiter: rateLimiter,
		db:          db,
	}, nil
}

// newIdentityProvider はIDENTITY_STORAGEに応じたIdentityの保存先を生成する。
// postgresの場合は接続確認済みのDBも返す。
func newIdentityProvider(cfg *config.Config) (identity.Provider, *sql.DB, error) {
	switch cfg.IdentityStorage {
	case config.IdentityStoragePostgres:
		db, err := openDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresClientStorageRepo(db)
		return identity.NewClientIDProvider(repo, clientIDConfig(cfg)), db, nil
	case config.IdentityStorageMemory:
		return identity.NewClientIDProvider(identity.NewMemoryRepository(), clientIDConfig(cfg)), nil, nil
	default:
		return identity.NewCookieProvider(identity.CookieConfig{
			Secret: []byte(cfg.SessionSecret),
			MaxAge: cfg.IdentityCookieMaxAge,
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		}), nil, nil
	}
}

func clientIDConfig(cfg *config.Config) identity.ClientIDConfig {
	return identity.ClientIDConfig{
		MaxAge: cfg.IdentityCookieMaxAge,
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}
}

// openDatabase はDB接続を開き、接続確認まで行う。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(context.Background(), db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srv, err := buildServer(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer srv.close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// client_storageの期限切れ行を定期的に削除する。IDENTITY_STORAGE=postgres でのみ意味を持つ。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.IdentityStorage != config.IdentityStoragePostgres {
		return fmt.Errorf("worker requires IDENTITY_STORAGE=postgres: got %q", cfg.IdentityStorage)
	}

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := cleanup.NewCleanupJob(db, slog.Default(), cfg.ClientStorageRetention)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.ClientStorageCleanup),
		slog.Duration("retention", job.Retention),
	)

	job.Start(ctx, cfg.ClientStorageCleanup)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	target, err := database.LatestVersion()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Uint64("target_version", uint64(target)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
