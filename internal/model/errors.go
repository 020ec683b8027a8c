// Package model はドメインモデルを定義する。
package model

import "fmt"

// AuthError はセッション判定で扱う型付きエラーを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 呼び出し元はHTTPステータスを再解釈せず、Codeで分岐する。
type AuthError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Category   string // カテゴリ: auth, resource, network
	Action     string // ユーザー向け対処方法
	StatusCode int    // 応答があった場合のHTTPステータス（通信失敗時は0）
	Err        error  // 原因となったエラー
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, ErrUnauthenticated) のようにセンチネルと比較できる。
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeResourceUnavailable = "RESOURCE_UNAVAILABLE"
	ErrCodeLogoutFailed        = "LOGOUT_FAILED"
	ErrCodeNetworkFailure      = "NETWORK_FAILURE"
)

// errors.Is で比較するためのセンチネル。
var (
	ErrUnauthenticated     = &AuthError{Code: ErrCodeUnauthenticated}
	ErrResourceUnavailable = &AuthError{Code: ErrCodeResourceUnavailable}
	ErrLogoutFailed        = &AuthError{Code: ErrCodeLogoutFailed}
	ErrNetworkFailure      = &AuthError{Code: ErrCodeNetworkFailure}
)

// NewUnauthenticatedError は未認証エラーを生成する。
// statusCodeには応答のHTTPステータス、応答ボディが不正な場合は原因をcauseに渡す。
func NewUnauthenticatedError(statusCode int, cause error) *AuthError {
	return &AuthError{
		Code:       ErrCodeUnauthenticated,
		Message:    "Not authenticated",
		Category:   "auth",
		Action:     "ログインし直してください。",
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewResourceUnavailableError は公開リソース取得失敗エラーを生成する。
func NewResourceUnavailableError(statusCode int, cause error) *AuthError {
	return &AuthError{
		Code:       ErrCodeResourceUnavailable,
		Message:    "Failed to fetch public message",
		Category:   "resource",
		Action:     "しばらく待ってから再度お試しください。",
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewLogoutFailedError はログアウト失敗エラーを生成する。
func NewLogoutFailedError(statusCode int, cause error) *AuthError {
	return &AuthError{
		Code:       ErrCodeLogoutFailed,
		Message:    "Logout failed",
		Category:   "auth",
		Action:     "再度ログアウトをお試しください。",
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewNetworkFailureError は通信失敗エラーを生成する。
// セッション判定上は未認証と同じ扱いになる。
func NewNetworkFailureError(cause error) *AuthError {
	return &AuthError{
		Code:     ErrCodeNetworkFailure,
		Message:  "Network failure",
		Category: "network",
		Action:   "ネットワーク接続を確認してください。",
		Err:      cause,
	}
}
