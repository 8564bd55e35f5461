// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするセッション管理のインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	StartSession(username string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// SignupServiceInterface はユーザー登録のインターフェース。
type SignupServiceInterface interface {
	Signup(ctx context.Context, username, password, email string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	users   SignupServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users SignupServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		config:  config,
	}
}

// credentials はサインアップ・ログインのリクエスト値。
// JSONとフォームの両方を受け付ける。
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

// Signup はユーザーを登録し、そのままログイン状態にする。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		handleServiceError(w, r, model.NewInvalidRequestError(err.Error()))
		return
	}

	user, err := h.users.Signup(r.Context(), creds.Username, creds.Password, creds.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// 登録直後に自動ログイン
	session, err := h.service.StartSession(user.Username)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login はユーザー名とパスワードを検証し、セッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		handleServiceError(w, r, model.NewInvalidRequestError(err.Error()))
		return
	}

	session, err := h.service.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)

	writeJSON(w, http.StatusOK, map[string]string{"username": session.Username})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// setSessionCookie はセッションCookieを書き込む。maxAgeが負の場合は削除になる。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// readCredentials はJSONボディまたはフォームから認証情報を読み取る。
func readCredentials(r *http.Request) (credentials, error) {
	var creds credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return credentials{}, err
		}
		return creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return credentials{}, err
	}
	creds.Username = r.PostFormValue("username")
	creds.Password = r.PostFormValue("password")
	creds.Email = r.PostFormValue("email")
	return creds, nil
}
