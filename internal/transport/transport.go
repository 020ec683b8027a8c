// Package transport はセッションCookieを自動送信するHTTPトランスポートを提供する。
//
// Clientはすべてのリクエストに資格情報（サーバー発行の不透明なCookie）を付与し、
// ベースURLとデフォルトヘッダーを正規化する。レスポンスのステータスは解釈しない。
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// defaultContentType は全リクエストに付与するデフォルトのContent-Type。
	defaultContentType = "application/json"
	// requestIDHeader はリクエスト追跡用のヘッダー名。
	requestIDHeader = "X-Request-ID"
)

// RequestOptions はリクエストごとの指定を保持する。
// 未指定のMethodはGETとして扱う。
type RequestOptions struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// Options はClientの生成オプション。
type Options struct {
	// HTTPClient は使用するHTTPクライアント。Jarが未設定の場合はNewCookieJarで補完する。
	HTTPClient *http.Client
	// RateLimit は送信レート（req/sec）。0以下の場合は制限しない。
	RateLimit float64
	Logger    *slog.Logger
}

// Client はセッショントランスポート。
// 可変状態はCookie Jar（HTTPクライアントが所有）のみで、並行利用できる。
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewCookieJar はPublic Suffix Listを使用するCookie Jarを生成する。
func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// New はClientを生成する。
// baseURLは全エンドポイントの解決元となる固定オリジン。
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := NewCookieJar()
		if err != nil {
			return nil, err
		}
		// 呼び出し元のクライアントを変更しないようコピーしてJarを設定する
		c := *httpClient
		c.Jar = jar
		httpClient = &c
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    u,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// BaseURL はエンドポイント解決元のオリジンを返す。
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HTTPClient は資格情報を保持するHTTPクライアントを返す。
// ブラウザ遷移を再現する呼び出し元が同じCookie Jarを共有するために使用する。
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ResolveURL はエンドポイントをベースオリジンに対して解決する。
func (c *Client) ResolveURL(endpoint string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(endpoint, "/")
}

// Do はエンドポイントにリクエストを送信し、HTTPレスポンスをそのまま返す。
// Cookie JarによりセッションCookieは常に送信される。
// 呼び出し元のヘッダーはデフォルトヘッダーより優先される。
// レスポンスのステータスは検査しない。ボディのCloseは呼び出し元の責務。
func (c *Client) Do(ctx context.Context, endpoint string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ResolveURL(endpoint), opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = mergeHeaders(opts.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
	if err != nil {
		c.logger.Debug("http request failed",
			slog.String("method", method),
			slog.String("path", req.URL.Path),
			slog.String("request_id", req.Header.Get(requestIDHeader)),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Debug("http request",
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.String("request_id", req.Header.Get(requestIDHeader)),
		slog.Int("status", resp.StatusCode),
		slog.Float64("duration_ms", durationMs),
	)
	return resp, nil
}

// mergeHeaders はデフォルトヘッダーに呼び出し元のヘッダーを上書きマージする。
func mergeHeaders(override http.Header) http.Header {
	h := http.Header{}
	h.Set("Content-Type", defaultContentType)
	h.Set(requestIDHeader, uuid.New().String())

	for k, vs := range override {
		key := http.CanonicalHeaderKey(k)
		h.Del(key)
		for _, v := range vs {
			h.Add(key, v)
		}
	}
	return h
}
