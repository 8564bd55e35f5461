// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, startup, field, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeStartupNotFound    = "STARTUP_NOT_FOUND"
	ErrCodeFieldNotFound      = "FIELD_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeLogoNotFound       = "LOGO_NOT_FOUND"
)

// ValidationError は入力検証で見つかったすべての違反を保持する。
// メッセージは利用者にそのまま表示される。
type ValidationError struct {
	Errors []string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError は違反メッセージからValidationErrorを生成する。
func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

// NewStartupNotFoundError はスタートアップ未検出エラーを生成する。
func NewStartupNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeStartupNotFound,
		Message:  fmt.Sprintf("Startup not found: %s", id),
		Category: "startup",
		Action:   "スタートアップIDを確認してください。",
	}
}

// NewFieldNotFoundError は分野未検出エラーを生成する。
func NewFieldNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeFieldNotFound,
		Message:  fmt.Sprintf("Field not found: %s", name),
		Category: "field",
		Action:   "分野名を確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "所有者または管理者としてログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報誤りエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid username or password",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("Username already exists: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidRequestError はリクエスト形式の誤りを表すエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "リクエストの内容を確認してください。",
	}
}

// NewLogoNotFoundError はロゴ画像が見つからない場合のエラーを生成する。
func NewLogoNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeLogoNotFound,
		Message:  "Logo not found",
		Category: "startup",
		Action:   "ページを再読み込みしてください。",
	}
}
