package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。入力検証エラーの場合はErrorsに全違反を列挙する。
type ErrorResponseBody struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Action   string   `json:"action"`
	Errors   []string `json:"errors,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeBody(w, statusCode, ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteValidationError は入力検証エラーを422で書き込む。
func WriteValidationError(w http.ResponseWriter, vErr *model.ValidationError) {
	message := "Invalid input"
	if len(vErr.Errors) > 0 {
		message = vErr.Errors[0]
	}
	writeBody(w, http.StatusUnprocessableEntity, ErrorResponseBody{
		Code:     model.ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を修正して再度送信してください。",
		Errors:   vErr.Errors,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

func writeBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
