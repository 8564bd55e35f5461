package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// defaultAdminPassword は開発用の既定管理者パスワード。
// ALLOW_DEFAULT_ADMIN_PASSWORD=true の場合のみ使われる。
const defaultAdminPassword = "admin123"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DataDir string
	LogoDir string

	// Admin
	AdminUsername string
	AdminPassword string

	// Session
	SessionMaxAge        int
	SessionPurgeInterval time.Duration

	// Logo
	LogoSize      int
	LogoMaxBytes  int64
	LogoMaxPixels int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Cleanup
	CleanupInterval time.Duration
	CleanupGrace    time.Duration

	// Server
	ServerPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if cfg.AdminPassword == "" {
		if getEnvBool("ALLOW_DEFAULT_ADMIN_PASSWORD", false) {
			cfg.AdminPassword = defaultAdminPassword
		} else {
			missing = append(missing, "ADMIN_PASSWORD")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DataDir = getEnvString("DATA_DIR", "./data")
	cfg.LogoDir = getEnvString("LOGO_DIR", filepath.Join(cfg.DataDir, "logos"))
	cfg.AdminUsername = getEnvString("ADMIN_USERNAME", "admin")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionPurgeInterval = getEnvDuration("SESSION_PURGE_INTERVAL", 10*time.Minute)
	cfg.LogoSize = getEnvInt("LOGO_SIZE", 512)
	cfg.LogoMaxBytes = getEnvInt64("LOGO_MAX_BYTES", 5242880)
	cfg.LogoMaxPixels = getEnvInt64("LOGO_MAX_PIXELS", 89478485)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)
	cfg.CleanupGrace = getEnvDuration("CLEANUP_GRACE", time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は値の範囲を検証する。
func (c *Config) validate() error {
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive: %d", c.SessionMaxAge)
	}
	if c.LogoSize <= 0 {
		return fmt.Errorf("LOGO_SIZE must be positive: %d", c.LogoSize)
	}
	if c.LogoMaxPixels <= 0 {
		return fmt.Errorf("LOGO_MAX_PIXELS must be positive: %d", c.LogoMaxPixels)
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitAuth <= 0 {
		return fmt.Errorf("rate limits must be positive: general=%d auth=%d", c.RateLimitGeneral, c.RateLimitAuth)
	}
	if c.SessionPurgeInterval <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("intervals must be positive: session_purge=%s cleanup=%s", c.SessionPurgeInterval, c.CleanupInterval)
	}
	return nil
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
	if err != nil {
		return defaultVal
	}
	return d
}
