// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sessiongate/internal/model"
)

// DefaultTokenCookieName はアクセストークンを格納するCookie名の既定値。
const DefaultTokenCookieName = "ACCESS_TOKEN"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// subjectContextKey はリクエストコンテキストにトークンの主体を格納するためのキー。
var subjectContextKey = contextKey("subject")

// TokenVerifier はアクセストークンの検証に必要なインターフェース。
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// NewSessionMiddleware はHTTP Only Cookieからアクセストークンを読み取り、
// 有効性を検証するミドルウェアを返す。
// 主体（メールアドレス）をリクエストコンテキストに注入する。
// 未認証リクエストには403 Forbiddenを返す。
func NewSessionMiddleware(verifier TokenVerifier, cookieName string) func(next http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultTokenCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				writeForbidden(w)
				return
			}

			// 2. トークンの有効性を検証
			subject, err := verifier.VerifyToken(cookie.Value)
			if err != nil {
				slog.Warn("rejected access token",
					slog.String("error", err.Error()),
				)
				writeForbidden(w)
				return
			}

			// 3. 主体をアクセスログとコンテキストに注入
			recordSubject(r.Context(), subject)
			ctx := context.WithValue(r.Context(), subjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext はリクエストコンテキストからトークンの主体を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SubjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("subject not found in context")
	}
	return subject, nil
}

// ContextWithSubject はコンテキストに主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

func writeForbidden(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError(http.StatusForbidden, nil))
}
