package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 統一フォーマットの500レスポンスを返すミドルウェアを生成する。
// http.ErrAbortHandlerは意図的な中断なので再度panicさせる。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
