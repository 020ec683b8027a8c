package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/sessiongate/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, authErr *model.AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     authErr.Code,
		Message:  authErr.Message,
		Category: authErr.Category,
		Action:   authErr.Action,
	})
}

// WriteNotFound は存在しないリソースに対する統一レスポンスを書き込む。
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusNotFound, &model.AuthError{
		Code:     "NOT_FOUND",
		Message:  message,
		Category: "validation",
		Action:   "URLを確認してください。",
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.AuthError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
