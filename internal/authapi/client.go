// Package authapi はセッショントランスポート上に構築した認証クエリを提供する。
// 各操作はHTTPの結果を成功値または型付きエラー（model.AuthError）に変換する。
package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/sessiongate/internal/metrics"
	"github.com/hitoshi/sessiongate/internal/model"
	"github.com/hitoshi/sessiongate/internal/transport"
)

const (
	currentUserEndpoint    = "/api/me"
	publicResourceEndpoint = "/api/public"
	logoutEndpoint         = "/logout"
	authorizationPrefix    = "/oauth2/authorization/"

	// maxBodySize はデコード対象のレスポンスボディの上限（1MB）。
	maxBodySize = 1 << 20
)

// メトリクスとログで使用する操作名。
const (
	OpFetchCurrentUser    = "fetch_current_user"
	OpFetchPublicResource = "fetch_public_resource"
	OpLogout              = "logout"
)

var providerPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Transport は認証クエリが必要とするトランスポートのインターフェース。
type Transport interface {
	Do(ctx context.Context, endpoint string, opts *transport.RequestOptions) (*http.Response, error)
	ResolveURL(endpoint string) string
}

// Client は認証クエリのクライアント。
// リトライは行わず、1回のリクエストを1回だけ解釈する。
type Client struct {
	transport Transport
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewClient(t Transport, logger *slog.Logger, recorder metrics.Recorder) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Client{
		transport: t,
		logger:    logger,
		recorder:  recorder,
	}
}

// FetchCurrentUser は現在のセッションのユーザー情報を取得する。
// 2xx以外、またはボディに識別用フィールドが無い場合はUnauthenticatedを返す。
// 通信失敗時はNetworkFailureを返す。
func (c *Client) FetchCurrentUser(ctx context.Context) (*model.UserIdentity, error) {
	start := time.Now()

	resp, err := c.transport.Do(ctx, currentUserEndpoint, nil)
	if err != nil {
		return nil, c.networkFailure(OpFetchCurrentUser, start, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Info("current user is not authenticated",
			slog.Int("http_status", resp.StatusCode),
		)
		c.recorder.RecordQuery(OpFetchCurrentUser, metrics.OutcomeFailure, time.Since(start))
		return nil, model.NewUnauthenticatedError(resp.StatusCode, nil)
	}

	var user model.UserIdentity
	if err := decodeBody(resp.Body, &user); err != nil {
		c.logger.Warn("failed to decode current user response",
			slog.String("error", err.Error()),
		)
		c.recorder.RecordQuery(OpFetchCurrentUser, metrics.OutcomeFailure, time.Since(start))
		return nil, model.NewUnauthenticatedError(resp.StatusCode, err)
	}

	// 識別用フィールドが無い応答は認証済みとみなさない
	if !user.HasIdentifier() {
		c.logger.Warn("current user response has no identifying field")
		c.recorder.RecordQuery(OpFetchCurrentUser, metrics.OutcomeFailure, time.Since(start))
		return nil, model.NewUnauthenticatedError(resp.StatusCode, fmt.Errorf("user identity has no identifying field"))
	}

	c.recorder.RecordQuery(OpFetchCurrentUser, metrics.OutcomeSuccess, time.Since(start))
	return &user, nil
}

// FetchPublicResource は認証不要の公開リソースを取得する。
// 2xx以外、またはボディが不正な場合はResourceUnavailableを返す。
func (c *Client) FetchPublicResource(ctx context.Context) (*model.PublicResource, error) {
	start := time.Now()

	resp, err := c.transport.Do(ctx, publicResourceEndpoint, nil)
	if err != nil {
		return nil, c.networkFailure(OpFetchPublicResource, start, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("public resource is unavailable",
			slog.Int("http_status", resp.StatusCode),
		)
		c.recorder.RecordQuery(OpFetchPublicResource, metrics.OutcomeFailure, time.Since(start))
		return nil, model.NewResourceUnavailableError(resp.StatusCode, nil)
	}

	var res model.PublicResource
	if err := decodeBody(resp.Body, &res); err != nil {
		c.logger.Warn("failed to decode public resource response",
			slog.String("error", err.Error()),
		)
		c.recorder.RecordQuery(OpFetchPublicResource, metrics.OutcomeFailure, time.Since(start))
		return nil, model.NewResourceUnavailableError(resp.StatusCode, err)
	}

	c.recorder.RecordQuery(OpFetchPublicResource, metrics.OutcomeSuccess, time.Since(start))
	return &res, nil
}

// Logout はサーバー側でセッションを無効化する。
// 2xx以外はLogoutFailedを返す。通信失敗時はNetworkFailureをラップしたLogoutFailedを返す。
func (c *Client) Logout(ctx context.Context) error {
	start := time.Now()

	resp, err := c.transport.Do(ctx, logoutEndpoint, &transport.RequestOptions{
		Method: http.MethodPost,
	})
	if err != nil {
		return model.NewLogoutFailedError(0, c.networkFailure(OpLogout, start, err))
	}
	defer resp.Body.Close()
	// ボディは使用しないが、コネクション再利用のため読み捨てる
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("logout failed",
			slog.Int("http_status", resp.StatusCode),
		)
		c.recorder.RecordQuery(OpLogout, metrics.OutcomeFailure, time.Since(start))
		return model.NewLogoutFailedError(resp.StatusCode, nil)
	}

	c.logger.Info("logged out")
	c.recorder.RecordQuery(OpLogout, metrics.OutcomeSuccess, time.Since(start))
	return nil
}

// AuthorizationURL はプロバイダーのOAuth2認可開始URLを返す。
// このURLはブラウザ遷移で開くもので、フェッチはしない。
func (c *Client) AuthorizationURL(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if !providerPattern.MatchString(p) {
		return "", fmt.Errorf("invalid provider name: %q", provider)
	}
	return c.transport.ResolveURL(authorizationPrefix + p), nil
}

// networkFailure は通信失敗をログとメトリクスに記録し、NetworkFailureエラーを返す。
func (c *Client) networkFailure(op string, start time.Time, err error) *model.AuthError {
	c.logger.Error("auth query request failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	c.recorder.RecordQuery(op, metrics.OutcomeNetwork, time.Since(start))
	return model.NewNetworkFailureError(err)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// decodeBody はレスポンスボディをJSONとしてデコードする。
func decodeBody(r io.Reader, v any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
