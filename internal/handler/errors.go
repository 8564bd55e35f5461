package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/model"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		middleware.WriteValidationError(w, vErr)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeStartupNotFound, model.ErrCodeFieldNotFound, model.ErrCodeUserNotFound, model.ErrCodeLogoNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUsernameTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// statusOK は位置更新などの成功レスポンス。
var statusOK = map[string]string{"status": "ok"}

// actorOrUnauthorized はコンテキストの操作者を返す。未認証なら401を書き込みfalseを返す。
func actorOrUnauthorized(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return model.Actor{}, false
	}
	return actor, true
}
