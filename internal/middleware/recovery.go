package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時に500の統一エラーレスポンスを返すミドルウェアを生成する。
// http.ErrAbortHandlerによる中断はnet/httpへそのまま伝播させる。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				attrs := []slog.Attr{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
					attrs = append(attrs, slog.String("request_id", reqID))
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", attrs...)

				// panic前に設定されたセッションCookieは発行しない
				w.Header().Del("Set-Cookie")
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
