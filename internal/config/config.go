package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identityの保存先
const (
	IdentityStorageCookie   = "cookie"
	IdentityStoragePostgres = "postgres"
	IdentityStorageMemory   = "memory"
)

// minSessionSecretLength はCookie署名鍵の最小バイト数。
const minSessionSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database（IDENTITY_STORAGE=postgres の場合のみ必須）
	DatabaseURL string

	// Identity Store
	SessionSecret          string
	IdentityStorage        string
	IdentityCookieMaxAge   time.Duration
	ClientStorageCleanup   time.Duration // ワーカーのクリーンアップ間隔
	ClientStorageRetention time.Duration

	// Directory
	DirectoryBaseURL    string
	DirectoryTimeout    time.Duration
	DirectorySafeClient bool

	// Admin
	AdminEmail    string
	AdminPassword string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.IdentityStorage = strings.ToLower(getEnvString("IDENTITY_STORAGE", IdentityStorageCookie))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.IdentityStorage == IdentityStoragePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.IdentityStorage {
	case IdentityStorageCookie, IdentityStoragePostgres, IdentityStorageMemory:
	default:
		return nil, fmt.Errorf("IDENTITY_STORAGE must be one of cookie, postgres, memory: got %q", cfg.IdentityStorage)
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}

	// Optional fields with defaults
	cfg.IdentityCookieMaxAge = getEnvDuration("IDENTITY_COOKIE_MAX_AGE", 400*24*time.Hour)
	cfg.ClientStorageCleanup = getEnvDuration("CLIENT_STORAGE_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ClientStorageRetention = getEnvDuration("CLIENT_STORAGE_RETENTION", cfg.IdentityCookieMaxAge)
	cfg.DirectoryBaseURL = strings.TrimRight(getEnvString("DIRECTORY_BASE_URL", "https://jsonplaceholder.typicode.com"), "/")
	cfg.DirectoryTimeout = getEnvDuration("DIRECTORY_TIMEOUT", 10*time.Second)
	cfg.DirectorySafeClient = getEnvBool("DIRECTORY_SAFE_CLIENT", true)
	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", "admin@admin.com")
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", "admin123")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
