package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hitoshi/sessiongate/internal/gate"
	"github.com/hitoshi/sessiongate/internal/security"
)

const notAvailable = "N/A"

// Dashboard はセッションゲートで保護されたダッシュボードビュー。
// マウント1回につき1つ生成する。
type Dashboard struct {
	gate      *gate.Gate
	sanitizer security.TextSanitizer
}

// NewDashboard はDashboardを生成する。
func NewDashboard(g *gate.Gate, sanitizer security.TextSanitizer) *Dashboard {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	return &Dashboard{gate: g, sanitizer: sanitizer}
}

// Mount はゲートの判定を行い、確定した状態を返す。
func (d *Dashboard) Mount(ctx context.Context) gate.State {
	return d.gate.Enter(ctx)
}

// Logout はログアウトを実行する。
func (d *Dashboard) Logout(ctx context.Context) error {
	return d.gate.Logout(ctx)
}

// Unmount はゲートを閉じる。
func (d *Dashboard) Unmount() {
	d.gate.Close()
}

// State は現在のゲートの状態を返す。
func (d *Dashboard) State() gate.State {
	return d.gate.State()
}

// Render は現在の状態をプレーンテキストで書き出す。
func (d *Dashboard) Render(w io.Writer) error {
	_, err := io.WriteString(w, d.RenderState(d.gate.State()))
	return err
}

// RenderState は状態をプレーンテキストに変換する。
// サーバー由来の文字列はサニタイズしてから出力する。
func (d *Dashboard) RenderState(s gate.State) string {
	var b strings.Builder

	switch {
	case s.Loading():
		b.WriteString("Loading...\n")
		return b.String()
	case !s.Authenticated():
		b.WriteString("Error: Not authenticated\n")
		return b.String()
	}

	b.WriteString("Dashboard\n\n")

	b.WriteString("[Public Endpoint Test]\n")
	msg := ""
	if s.Public != nil {
		msg = d.sanitizer.Sanitize(s.Public.Message)
	}
	if msg == "" {
		msg = notAvailable
	}
	fmt.Fprintf(&b, "GET /api/public: %s\n\n", msg)

	b.WriteString("[Authenticated User]\n")
	if v := d.sanitizer.Sanitize(s.User.Email); v != "" {
		fmt.Fprintf(&b, "Email: %s\n", v)
	}
	if v := d.sanitizer.Sanitize(s.User.Username); v != "" {
		fmt.Fprintf(&b, "Username: %s\n", v)
	}
	if v := d.sanitizer.Sanitize(s.User.Name); v != "" {
		fmt.Fprintf(&b, "Name: %s\n", v)
	}

	if s.Annotation != "" {
		fmt.Fprintf(&b, "\nError: %s\n", s.Annotation)
	}
	return b.String()
}
