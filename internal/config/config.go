package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// セッションゲートのクエリ発行ストラテジー名。
const (
	StrategySequential = "sequential"
	StrategyConcurrent = "concurrent"
)

// minJWTSecretLength はHS256署名鍵の最小長（バイト）。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL       string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`
	RequestRateLimit float64       `env:"REQUEST_RATE_LIMIT" envDefault:"0"`

	// View
	LoginPath      string   `env:"LOGIN_PATH" envDefault:"/login"`
	DashboardPath  string   `env:"DASHBOARD_PATH" envDefault:"/dashboard"`
	LoginProviders []string `env:"LOGIN_PROVIDERS" envDefault:"google,github" envSeparator:","`
	GateStrategy   string   `env:"GATE_STRATEGY" envDefault:"sequential"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Dev server
	DevServer DevServerConfig `envPrefix:"DEV_"`
}

// DevServerConfig はローカル開発用の認証サーバーの設定。
type DevServerConfig struct {
	Port          string        `env:"SERVER_PORT" envDefault:"8080"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"15m"`
	CookieName    string        `env:"COOKIE_NAME" envDefault:"ACCESS_TOKEN"`
	FrontendURL   string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	UserEmail     string        `env:"USER_EMAIL" envDefault:"dev@example.com"`
}

// Load は環境変数からConfigを読み込む。
// 値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	for i, p := range cfg.LoginProviders {
		cfg.LoginProviders[i] = strings.ToLower(strings.TrimSpace(p))
	}
	cfg.GateStrategy = strings.ToLower(cfg.GateStrategy)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate はクライアント側の設定値を検証する。
// 開発用サーバーの設定はValidateDevServerで別途検証する。
func (c *Config) validate() error {
	var invalid []string

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		invalid = append(invalid, "API_BASE_URL")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		invalid = append(invalid, "LOGIN_PATH")
	}
	if !strings.HasPrefix(c.DashboardPath, "/") {
		invalid = append(invalid, "DASHBOARD_PATH")
	}
	if c.GateStrategy != StrategySequential && c.GateStrategy != StrategyConcurrent {
		invalid = append(invalid, "GATE_STRATEGY")
	}
	if c.RequestRateLimit < 0 {
		invalid = append(invalid, "REQUEST_RATE_LIMIT")
	}
	if c.RequestTimeout < 0 {
		invalid = append(invalid, "REQUEST_TIMEOUT")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment variables: %v", invalid)
	}
	return nil
}

// ValidateDevServer は開発用サーバーの起動に必要な設定を検証する。
func (c *Config) ValidateDevServer() error {
	var invalid []string

	if len(c.DevServer.JWTSecret) < minJWTSecretLength {
		invalid = append(invalid, "DEV_JWT_SECRET")
	}
	if c.DevServer.JWTExpiration <= 0 {
		invalid = append(invalid, "DEV_JWT_EXPIRATION")
	}
	if c.DevServer.CookieName == "" {
		invalid = append(invalid, "DEV_COOKIE_NAME")
	}
	if c.DevServer.UserEmail == "" {
		invalid = append(invalid, "DEV_USER_EMAIL")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid dev server environment variables: %v", invalid)
	}
	return nil
}

// CookieSecure はフロントエンドがHTTPSで提供される場合にtrueを返す。
func (d DevServerConfig) CookieSecure() bool {
	return strings.HasPrefix(d.FrontendURL, "https://")
}
