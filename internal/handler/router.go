package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sessiongate/internal/metrics"
	"github.com/hitoshi/sessiongate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	AuthService       AuthServiceInterface
	AuthConfig        AuthHandlerConfig
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// SignInLimiter はサインインエンドポイントのレート制限。nilの場合は制限しない。
	SignInLimiter *middleware.RateLimiter

	// Gatherer は/metricsで公開するメトリクス。nilの場合はルートを登録しない。
	Gatherer prometheus.Gatherer
}

// NewRouter は開発用認証サーバーの全エンドポイントを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (Session: /api/meのみ)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.AuthConfig.CookieName))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)

	// --- 認証不要のルート ---
	r.Get("/api/public", Public)
	r.Post("/logout", authHandler.Logout)

	r.Group(func(r chi.Router) {
		if deps.SignInLimiter != nil {
			r.Use(deps.SignInLimiter.Middleware())
		}
		r.Get("/oauth2/authorization/{provider}", authHandler.Authorize)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.AuthService, authHandler.config.CookieName))
		r.Get("/api/me", authHandler.Me)
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteNotFound(w, "not found")
	})

	return r
}
