package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はデータストアの疎通確認を行うインターフェース。
// store.Storeが実装する。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// healthCheckTimeout はヘルスチェック1回あたりの上限時間。
const healthCheckTimeout = 2 * time.Second

// NewHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// GET /health
// データディレクトリにアクセスできない場合は503を返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			if err := checker.Ping(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, statusOK)
	}
}
