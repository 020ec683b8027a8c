package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの署名・有効期限・形式が不正な場合に返される。
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig はアクセストークンの設定。
type TokenConfig struct {
	Secret     []byte        // HS256署名鍵
	Expiration time.Duration // 有効期間
	Issuer     string
}

// TokenService はHS256署名のアクセストークンを発行・検証する。
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if config.Expiration <= 0 {
		return nil, errors.New("token expiration must be positive")
	}
	return &TokenService{config: config, now: time.Now}, nil
}

// Expiration はトークンの有効期間を返す。
func (s *TokenService) Expiration() time.Duration {
	return s.config.Expiration
}

// Issue はsubjectを主体とするトークンを発行し、有効期限とともに返す。
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}

	now := s.now()
	exp := now.Add(s.config.Expiration)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify はトークンを検証し、主体を返す。
// 検証に失敗した場合はErrInvalidTokenをラップしたエラーを返す。
func (s *TokenService) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.config.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
