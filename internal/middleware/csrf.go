package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/startupnetwork/internal/idgen"
	"github.com/hitoshi/startupnetwork/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// フロントエンドからJavaScriptで読み取れるよう、HttpOnlyではない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// csrfFormField はmultipartフォームでトークンを送る場合のフィールド名。
	csrfFormField = "csrf_token"

	csrfTokenBytes = 32
	csrfMaxAge     = 86400
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF検証ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップし、トークンCookieを設定する。
// 状態変更メソッドはCookieのトークンとX-CSRF-Tokenヘッダー（またはフォームの
// csrf_tokenフィールド）の一致を必須とする。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				if _, err := r.Cookie(csrfCookieName); err != nil {
					if _, err := setCSRFCookie(w, config); err != nil {
						slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, "missing cookie token")
				return
			}

			token := r.Header.Get(csrfHeaderName)
			if token == "" {
				token = r.PostFormValue(csrfFormField)
			}
			if token == "" {
				rejectCSRF(w, r, "missing request token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
				rejectCSRF(w, r, "token mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はCSRFトークン取得エンドポイントのハンドラーを返す。
// GET /api/csrf-token
// 既存のCSRFトークンCookieがある場合はそれを返し、なければ新規生成する。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			token, err = setCSRFCookie(w, config)
			if err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": token,
		})
	})
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// setCSRFCookie は新しいトークンを生成してCookieに設定し、トークンを返す。
func setCSRFCookie(w http.ResponseWriter, config CSRFConfig) (string, error) {
	token, err := idgen.NewID(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfMaxAge,
		HttpOnly: false, // フロントエンドから読み取り可能
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
		Code:     "CSRF_INVALID",
		Message:  "CSRF token validation failed",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	})
}
