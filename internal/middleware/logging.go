package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// セッションCookieに対する応答の操作。
const (
	cookieActionIssued  = "issued"
	cookieActionCleared = "cleared"
)

// requestLogKey はリクエストログの記録先をコンテキストに格納するためのキー。
var requestLogKey = contextKey("request_log")

// requestLog は内側のミドルウェアがアクセスログへ残す情報。
// セッションミドルウェアは派生コンテキストを次へ渡すため、
// 外側のロギングミドルウェアへはこの記録先を介して主体を伝える。
type requestLog struct {
	mu      sync.Mutex
	subject string
}

func (l *requestLog) setSubject(subject string) {
	l.mu.Lock()
	l.subject = subject
	l.mu.Unlock()
}

func (l *requestLog) getSubject() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subject
}

// recordSubject はアクセスログに認証済みの主体を記録する。
// ロギングミドルウェアの外で呼ばれた場合は何もしない。
func recordSubject(ctx context.Context, subject string) {
	if l, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		l.setSubject(subject)
	}
}

// responseRecorder はhttp.ResponseWriterをラップし、
// ステータスコードと書き込みバイト数、セッションCookieの発行・破棄を記録する。
type responseRecorder struct {
	http.ResponseWriter
	cookieName   string
	statusCode   int
	bytes        int
	cookieAction string
	written      bool
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.written {
		rr.statusCode = code
		rr.cookieAction = sessionCookieAction(rr.Header(), rr.cookieName)
		rr.written = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (rr *responseRecorder) Write(b []byte) (int, error) {
	if !rr.written {
		rr.WriteHeader(http.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// sessionCookieAction はSet-CookieヘッダーからセッションCookieの操作を判定する。
func sessionCookieAction(h http.Header, cookieName string) string {
	action := ""
	for _, line := range h.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil || c.Name != cookieName {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			action = cookieActionCleared
		} else {
			action = cookieActionIssued
		}
	}
	return action
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、bytes、duration_msを含み、
// X-Request-ID、認証済みの主体、セッションCookieの発行・破棄があれば追加する。
func NewLoggingMiddleware(logger *slog.Logger, cookieName string) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cookieName == "" {
		cookieName = DefaultTokenCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			entry := &requestLog{}
			rec := &responseRecorder{
				ResponseWriter: w,
				cookieName:     cookieName,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogKey, entry)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}

			subject := entry.getSubject()
			if subject == "" {
				subject, _ = SubjectFromContext(r.Context())
			}
			if subject != "" {
				attrs = append(attrs, slog.String("subject", subject))
			}
			if rec.cookieAction != "" {
				attrs = append(attrs, slog.String("session_cookie", rec.cookieAction))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
