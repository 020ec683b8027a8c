package auth

import (
	"context"
	"errors"
	"testing"
)

// --- モック定義 ---

type mockOAuthProvider struct {
	authenticateFn func(ctx context.Context) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) Authenticate(ctx context.Context) (*OAuthUserInfo, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx)
	}
	return nil, nil
}

var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ OAuthProvider = StaticProvider{}

// --- テスト ---

func TestSignIn_IssuesTokenForProviderUser(t *testing.T) {
	tokens := newTestTokenService(t)
	svc := NewService(tokens, map[string]OAuthProvider{
		"google": StaticProvider{Name: "google", Email: "dev@example.com"},
	})

	session, err := svc.SignIn(context.Background(), "Google")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Subject != "dev@example.com" {
		t.Errorf("Subject = %q, want %q", session.Subject, "dev@example.com")
	}

	subject, err := svc.VerifyToken(session.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "dev@example.com" {
		t.Errorf("verified subject = %q, want %q", subject, "dev@example.com")
	}
}

func TestSignIn_UnknownProvider(t *testing.T) {
	svc := NewService(newTestTokenService(t), map[string]OAuthProvider{
		"google": StaticProvider{Name: "google", Email: "dev@example.com"},
	})

	_, err := svc.SignIn(context.Background(), "twitter")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
	if svc.HasProvider("twitter") {
		t.Error("HasProvider(twitter) should be false")
	}
	if !svc.HasProvider("GOOGLE") {
		t.Error("HasProvider should be case-insensitive")
	}
}

func TestSignIn_ProviderError(t *testing.T) {
	svc := NewService(newTestTokenService(t), map[string]OAuthProvider{
		"github": &mockOAuthProvider{
			authenticateFn: func(context.Context) (*OAuthUserInfo, error) {
				return nil, errors.New("access denied")
			},
		},
	})

	if _, err := svc.SignIn(context.Background(), "github"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaticProvider_NoEmail(t *testing.T) {
	if _, err := (StaticProvider{Name: "google"}).Authenticate(context.Background()); err == nil {
		t.Error("expected error for provider without user")
	}
}
