// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに操作者を格納するためのキー。
var actorContextKey = contextKey("actor")

// SessionResolver はセッションIDから現在のユーザーを解決するインターフェース。
// auth.Serviceが実装する。無効なセッションには(nil, nil)を返す。
type SessionResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーを操作者としてリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションの有効性を検証
			user, err := resolver.CurrentUser(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 操作者をコンテキストに注入
			ctx := ContextWithActor(r.Context(), model.ActorOf(user))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext はリクエストコンテキストから操作者を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(model.Actor)
	if !ok || actor.Username == "" {
		return model.Actor{}, false
	}
	return actor, true
}

// ContextWithActor はコンテキストに操作者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor model.Actor) context.Context {
	if h, ok := ctx.Value(actorHolderContextKey).(*actorHolder); ok {
		h.username = actor.Username
	}
	return context.WithValue(ctx, actorContextKey, actor)
}
