package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8080")
	}
	if cfg.LoginPath != "/login" {
		t.Errorf("LoginPath = %q, want %q", cfg.LoginPath, "/login")
	}
	if cfg.DashboardPath != "/dashboard" {
		t.Errorf("DashboardPath = %q, want %q", cfg.DashboardPath, "/dashboard")
	}
	if len(cfg.LoginProviders) != 2 || cfg.LoginProviders[0] != "google" || cfg.LoginProviders[1] != "github" {
		t.Errorf("LoginProviders = %v, want [google github]", cfg.LoginProviders)
	}
	if cfg.GateStrategy != StrategySequential {
		t.Errorf("GateStrategy = %q, want %q", cfg.GateStrategy, StrategySequential)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %v, want 0", cfg.RequestTimeout)
	}
	if cfg.RequestRateLimit != 0 {
		t.Errorf("RequestRateLimit = %v, want 0", cfg.RequestRateLimit)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}

	// Dev server defaults
	if cfg.DevServer.Port != "8080" {
		t.Errorf("DevServer.Port = %q, want %q", cfg.DevServer.Port, "8080")
	}
	if cfg.DevServer.JWTExpiration != 15*time.Minute {
		t.Errorf("DevServer.JWTExpiration = %v, want %v", cfg.DevServer.JWTExpiration, 15*time.Minute)
	}
	if cfg.DevServer.CookieName != "ACCESS_TOKEN" {
		t.Errorf("DevServer.CookieName = %q, want %q", cfg.DevServer.CookieName, "ACCESS_TOKEN")
	}
	if cfg.DevServer.FrontendURL != "http://localhost:3000" {
		t.Errorf("DevServer.FrontendURL = %q, want %q", cfg.DevServer.FrontendURL, "http://localhost:3000")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://auth.example.com/")
	t.Setenv("LOGIN_PROVIDERS", "GitHub, gitlab")
	t.Setenv("GATE_STRATEGY", "Concurrent")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REQUEST_RATE_LIMIT", "2.5")
	t.Setenv("DEV_JWT_EXPIRATION", "1h")
	t.Setenv("DEV_USER_EMAIL", "a@b.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 末尾のスラッシュは取り除かれる
	if cfg.APIBaseURL != "https://auth.example.com" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "https://auth.example.com")
	}
	if len(cfg.LoginProviders) != 2 || cfg.LoginProviders[0] != "github" || cfg.LoginProviders[1] != "gitlab" {
		t.Errorf("LoginProviders = %v, want [github gitlab]", cfg.LoginProviders)
	}
	if cfg.GateStrategy != StrategyConcurrent {
		t.Errorf("GateStrategy = %q, want %q", cfg.GateStrategy, StrategyConcurrent)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want %v", cfg.RequestTimeout, 5*time.Second)
	}
	if cfg.RequestRateLimit != 2.5 {
		t.Errorf("RequestRateLimit = %v, want 2.5", cfg.RequestRateLimit)
	}
	if cfg.DevServer.JWTExpiration != time.Hour {
		t.Errorf("DevServer.JWTExpiration = %v, want %v", cfg.DevServer.JWTExpiration, time.Hour)
	}
	if cfg.DevServer.UserEmail != "a@b.com" {
		t.Errorf("DevServer.UserEmail = %q, want %q", cfg.DevServer.UserEmail, "a@b.com")
	}
}

func TestLoad_InvalidValues_ReturnsError(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"不正なベースURL", "API_BASE_URL", "localhost:8080", "API_BASE_URL"},
		{"スキームなし", "API_BASE_URL", "ftp://example.com", "API_BASE_URL"},
		{"不正なログインパス", "LOGIN_PATH", "login", "LOGIN_PATH"},
		{"不正なダッシュボードパス", "DASHBOARD_PATH", "dashboard", "DASHBOARD_PATH"},
		{"不正なストラテジー", "GATE_STRATEGY", "parallel", "GATE_STRATEGY"},
		{"負のレート", "REQUEST_RATE_LIMIT", "-1", "REQUEST_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, should mention %s", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_UnparsableDuration_ReturnsError(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestValidateDevServer(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// JWTシークレット未設定
	if err := cfg.ValidateDevServer(); err == nil || !strings.Contains(err.Error(), "DEV_JWT_SECRET") {
		t.Errorf("ValidateDevServer() = %v, want error mentioning DEV_JWT_SECRET", err)
	}

	cfg.DevServer.JWTSecret = "test-jwt-secret-that-is-32-bytes!"
	if err := cfg.ValidateDevServer(); err != nil {
		t.Errorf("ValidateDevServer() = %v, want nil", err)
	}

	cfg.DevServer.JWTExpiration = 0
	if err := cfg.ValidateDevServer(); err == nil {
		t.Error("ValidateDevServer() should reject zero expiration")
	}
}

func TestDevServerConfig_CookieSecure(t *testing.T) {
	if (DevServerConfig{FrontendURL: "http://localhost:3000"}).CookieSecure() {
		t.Error("http frontend should not use secure cookies")
	}
	if !(DevServerConfig{FrontendURL: "https://app.example.com"}).CookieSecure() {
		t.Error("https frontend should use secure cookies")
	}
}
