package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名。
const RequestIDHeader = "X-Request-ID"

var requestIDContextKey = contextKey("request_id")

// maxRequestIDLength を超えるクライアント指定のIDは採用しない。
const maxRequestIDLength = 128

// NewRequestIDMiddleware は各リクエストにIDを割り当てるミドルウェアを返す。
// クライアントが送ったX-Request-IDがあればそれを使い、なければUUIDを生成する。
// IDはレスポンスヘッダーとリクエストコンテキストに設定される。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
