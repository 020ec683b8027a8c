// Package auth は開発用サーバーのサインインとアクセストークン管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUnknownProvider は登録されていないプロバイダーが指定された場合に返される。
var ErrUnknownProvider = errors.New("unknown provider")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	Email    string
	Name     string
	Provider string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// Authenticate は認可ラウンドトリップを完了し、ユーザー情報を返す。
	Authenticate(ctx context.Context) (*OAuthUserInfo, error)
}

// StaticProvider は固定のユーザーで認可を完了する開発用プロバイダー。
type StaticProvider struct {
	Name  string
	Email string
}

// Authenticate は設定されたユーザー情報を返す。
func (p StaticProvider) Authenticate(_ context.Context) (*OAuthUserInfo, error) {
	if p.Email == "" {
		return nil, fmt.Errorf("provider %s has no user configured", p.Name)
	}
	return &OAuthUserInfo{Email: p.Email, Provider: p.Name}, nil
}

// Session は発行されたアクセストークンとその有効期限を表す。
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// Service はサインインとトークン検証のビジネスロジックを提供する。
type Service struct {
	tokens    *TokenService
	providers map[string]OAuthProvider
}

// NewService はServiceを生成する。providersのキーは小文字のプロバイダー名。
func NewService(tokens *TokenService, providers map[string]OAuthProvider) *Service {
	normalized := make(map[string]OAuthProvider, len(providers))
	for name, p := range providers {
		normalized[strings.ToLower(name)] = p
	}
	return &Service{tokens: tokens, providers: normalized}
}

// HasProvider はプロバイダーが登録されているかを返す。
func (s *Service) HasProvider(provider string) bool {
	_, ok := s.providers[strings.ToLower(provider)]
	return ok
}

// SignIn はプロバイダーで認証し、メールアドレスを主体とするトークンを発行する。
func (s *Service) SignIn(ctx context.Context, provider string) (*Session, error) {
	p, ok := s.providers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	info, err := p.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with %s: %w", provider, err)
	}

	token, exp, err := s.tokens.Issue(info.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user signed in",
		slog.String("provider", info.Provider),
		slog.String("email", info.Email),
	)
	return &Session{Token: token, Subject: info.Email, ExpiresAt: exp}, nil
}

// VerifyToken はトークンを検証し、主体を返す。
func (s *Service) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}

// TokenTTL はトークンの有効期間を返す。
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.Expiration()
}
