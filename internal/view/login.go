package view

import (
	"fmt"
	"slices"
	"strings"
)

// AuthorizationURLBuilder はプロバイダーの認可開始URLを組み立てる。
type AuthorizationURLBuilder interface {
	AuthorizationURL(provider string) (string, error)
}

// Login はログインビュー。ローカルの状態は持たない。
type Login struct {
	navigator Navigator
	builder   AuthorizationURLBuilder
	providers []string
}

// NewLogin はLoginを生成する。providersは選択肢として提示するプロバイダー名。
func NewLogin(navigator Navigator, builder AuthorizationURLBuilder, providers []string) *Login {
	return &Login{
		navigator: navigator,
		builder:   builder,
		providers: providers,
	}
}

// Providers は選択可能なプロバイダー名を返す。
func (l *Login) Providers() []string {
	return append([]string(nil), l.providers...)
}

// Select はプロバイダーの認可パスへブラウザを遷移させる。
// リダイレクトとコールバックはサーバー側で処理される。
func (l *Login) Select(provider string) error {
	p := strings.ToLower(strings.TrimSpace(provider))
	if !slices.Contains(l.providers, p) {
		return fmt.Errorf("unsupported login provider: %q", provider)
	}

	url, err := l.builder.AuthorizationURL(p)
	if err != nil {
		return fmt.Errorf("failed to build authorization URL: %w", err)
	}
	l.navigator.GoTo(url)
	return nil
}

// Render はログインビューをプレーンテキストで書き出す。
func (l *Login) Render() string {
	var b strings.Builder
	b.WriteString("Login\n")
	b.WriteString("Choose a provider to sign in:\n")
	for _, p := range l.providers {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	return b.String()
}
