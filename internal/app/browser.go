package app

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Browser はCLI上でブラウザ遷移を再現するNavigator。
// アプリ内パスへの遷移は記録のみ行い、サーバーオリジンの絶対URLへの遷移は
// 共有のCookie付きHTTPクライアントで実際にリクエストし、リダイレクト先に移動する。
type Browser struct {
	out         io.Writer
	client      *http.Client
	serverURL   string
	frontendURL string

	mu      sync.Mutex
	history []string
	err     error
}

// NewBrowser はBrowserを生成する。
// clientはセッショントランスポートと同じCookie Jarを持つこと。
func NewBrowser(out io.Writer, client *http.Client, serverURL, frontendURL string) *Browser {
	// リダイレクトはBrowser自身が解釈する
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Browser{
		out:         out,
		client:      &c,
		serverURL:   strings.TrimRight(serverURL, "/"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// GoTo は遷移先を記録し、サーバーオリジンであればリクエストを実行する。
func (b *Browser) GoTo(path string) {
	fmt.Fprintf(b.out, "-> %s\n", path)
	b.push(path)

	if !strings.HasPrefix(path, b.serverURL+"/") {
		return
	}

	resp, err := b.client.Get(path)
	if err != nil {
		b.fail(fmt.Errorf("failed to navigate to %s: %w", path, err))
		return
	}
	resp.Body.Close()

	location := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode >= 400 || location == "" {
		b.fail(fmt.Errorf("navigation to %s returned status %d", path, resp.StatusCode))
		return
	}

	next := b.appPath(location)
	fmt.Fprintf(b.out, "-> %s (redirect)\n", next)
	b.push(next)
}

// Current は現在の遷移先を返す。
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == 0 {
		return ""
	}
	return b.history[len(b.history)-1]
}

// History は遷移履歴を古い順に返す。
func (b *Browser) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history...)
}

// Err は直近の遷移で発生したエラーを返す。
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// appPath はフロントエンドオリジン上のURLをアプリ内パスに変換する。
func (b *Browser) appPath(location string) string {
	if b.frontendURL != "" && strings.HasPrefix(location, b.frontendURL) {
		rest := strings.TrimPrefix(location, b.frontendURL)
		if rest == "" {
			return "/"
		}
		if strings.HasPrefix(rest, "/") {
			return rest
		}
	}
	return location
}

func (b *Browser) push(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, path)
}

func (b *Browser) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}
