package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- モック定義 ---

type mockTokenVerifier struct {
	verifyTokenFn func(token string) (string, error)
}

func (m *mockTokenVerifier) VerifyToken(token string) (string, error) {
	if m.verifyTokenFn != nil {
		return m.verifyTokenFn(token)
	}
	return "", errors.New("invalid token")
}

// --- テスト ---

func TestSessionMiddleware_ValidToken_InjectsSubject(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyTokenFn: func(token string) (string, error) {
			if token == "valid-token" {
				return "user@example.com", nil
			}
			return "", errors.New("invalid token")
		},
	}

	mw := NewSessionMiddleware(verifier, "ACCESS_TOKEN")

	var captured string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := SubjectFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = subject
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "ACCESS_TOKEN", Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured != "user@example.com" {
		t.Errorf("subject = %q, want %q", captured, "user@example.com")
	}
}

func TestSessionMiddleware_Rejects_Returns403(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"Cookieなし", nil},
		{"空のCookie", &http.Cookie{Name: "ACCESS_TOKEN", Value: ""}},
		{"不正なトークン", &http.Cookie{Name: "ACCESS_TOKEN", Value: "expired"}},
		{"別名のCookie", &http.Cookie{Name: "session_id", Value: "valid-token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewSessionMiddleware(&mockTokenVerifier{}, "")
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != "UNAUTHENTICATED" {
				t.Errorf("code = %q, want UNAUTHENTICATED", body.Code)
			}
		})
	}
}

func TestSubjectFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := SubjectFromContext(context.Background()); err == nil {
		t.Error("expected error for missing subject in context")
	}
}

func TestContextWithSubject_RoundTrip(t *testing.T) {
	ctx := ContextWithSubject(context.Background(), "user@example.com")
	subject, err := SubjectFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if subject != "user@example.com" {
		t.Errorf("subject = %q, want %q", subject, "user@example.com")
	}
}
