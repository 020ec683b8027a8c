// Package handler は開発用認証サーバーのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sessiongate/internal/auth"
	"github.com/hitoshi/sessiongate/internal/middleware"
	"github.com/hitoshi/sessiongate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	HasProvider(provider string) bool
	SignIn(ctx context.Context, provider string) (*auth.Session, error)
	VerifyToken(token string) (string, error)
	TokenTTL() time.Duration
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string // サインイン完了後のリダイレクト先
	CookieName   string
	CookieSecure bool
}

// AuthHandler はサインイン・ログアウト・現在のユーザー取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.CookieName == "" {
		config.CookieName = middleware.DefaultTokenCookieName
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Authorize はプロバイダーでのサインインを完了し、トークンCookieを発行して
// フロントエンドへリダイレクトする。トークンはURLに含めない。
// GET /oauth2/authorization/{provider}
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !h.service.HasProvider(provider) {
		middleware.WriteNotFound(w, "unknown provider")
		return
	}

	session, err := h.service.SignIn(r.Context(), provider)
	if errors.Is(err, auth.ErrUnknownProvider) {
		middleware.WriteNotFound(w, "unknown provider")
		return
	}
	if err != nil {
		slog.Error("sign in failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, h.tokenCookie(session.Token, int(h.service.TokenTTL().Seconds())))
	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// Logout はトークンCookieを無効化する。
// Cookieの有無に関わらず成功を返す。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.tokenCookie("", -1))

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
		"status":  "success",
	})
}

// Me は現在のログインユーザー情報を返す。
// セッションミドルウェアの内側に配置する。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := middleware.SubjectFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError(http.StatusForbidden, err))
		return
	}

	writeJSON(w, http.StatusOK, model.UserIdentity{Email: subject})
}

// tokenCookie はトークンCookieを生成する。maxAgeが負の場合は削除用。
func (h *AuthHandler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.config.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
