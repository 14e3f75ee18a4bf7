package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string
	CartTTL  time.Duration

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	ClientIdleTTL          time.Duration
	ClientSweepInterval    time.Duration

	// Guard
	PolicyFile         string
	RestoreWaitCeiling time.Duration
	AdminOnUserRoute   string
	BackNavigation     string

	// Store
	StoreName      string
	WhatsAppNumber string
	TimeZone       string

	// Upload
	UploadDir         string
	UploadBaseURL     string
	UploadMaxSize     int64
	AssetsDir         string
	ImageFetchTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	BaseURL    string
	LogLevel   string

	// Worker
	WorkerMetricsPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定のものをまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.RedisURL = required("REDIS_URL")
	cfg.BaseURL = strings.TrimRight(required("BASE_URL"), "/")
	cfg.WhatsAppNumber = required("WHATSAPP_NUMBER")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.ClientIdleTTL = getEnvDuration("CLIENT_IDLE_TTL", 24*time.Hour)
	cfg.ClientSweepInterval = getEnvDuration("CLIENT_SWEEP_INTERVAL", 10*time.Minute)
	cfg.CartTTL = getEnvDuration("CART_TTL", 7*24*time.Hour)
	cfg.PolicyFile = getEnvString("POLICY_FILE", "")
	cfg.RestoreWaitCeiling = getEnvDuration("RESTORE_WAIT_CEILING", 3*time.Second)
	cfg.AdminOnUserRoute = getEnvString("GUARD_ADMIN_ON_USER_ROUTE", "redirect_admin_home")
	cfg.BackNavigation = getEnvString("GUARD_BACK_NAVIGATION", "admin_to_user")
	cfg.StoreName = getEnvString("STORE_NAME", "Panadería")
	cfg.TimeZone = getEnvString("STORE_TIMEZONE", "America/Lima")
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "./uploads")
	cfg.UploadBaseURL = strings.TrimRight(getEnvString("UPLOAD_BASE_URL", cfg.BaseURL+"/uploads"), "/")
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 5242880)
	cfg.AssetsDir = getEnvString("ASSETS_DIR", "")
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:4200")

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
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
