package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupnetwork/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	MaxBodyBytes      int64

	// 運用
	HealthChecker  HealthChecker
	StatusRecorder middleware.StatusRecorder // nilの場合はHTTPステータスを記録しない
	MetricsHandler http.Handler              // nilの場合は/metricsを公開しない

	// 認証
	AuthService   AuthServiceInterface
	SignupService SignupServiceInterface
	AuthConfig    AuthHandlerConfig

	// スタートアップ・分野・ロゴ
	StartupService StartupServiceInterface
	FieldService   FieldServiceInterface
	Logos          LogoLocator
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → BodyLimit → CSRF
//
// 参照系とログイン・登録はセッション不要。状態を変更するAPIは
// Session → RateLimit(General) の順に通過する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewBodyLimitMiddleware(deps.MaxBodyBytes))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

	authHandler := NewAuthHandler(deps.AuthService, deps.SignupService, deps.AuthConfig)
	startupHandler := NewStartupHandler(deps.StartupService)
	fieldHandler := NewFieldHandler(deps.FieldService)
	logoHandler := NewLogoHandler(deps.Logos)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// ロゴ配信
	r.Get("/data/logos/{file}", logoHandler.ServeLogo)

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Route("/auth", func(r chi.Router) {
			// ログイン・登録には総当たり対策の専用レート制限を追加
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/signup", authHandler.Signup)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/api/startups", startupHandler.ListStartups)
		r.Get("/api/startups/{id}", startupHandler.GetStartup)
		r.Get("/api/fields", fieldHandler.ListFields)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/api/startups", startupHandler.CreateStartup)
		// 参照系と同じパターンに登録するため、Routeによるマウントは使わない
		r.Put("/api/startups/{id}", startupHandler.UpdateStartup)
		r.Delete("/api/startups/{id}", startupHandler.DeleteStartup)
		r.Post("/api/startups/{id}/position", startupHandler.UpdatePosition)

		r.Post("/api/fields/{name}/position", fieldHandler.UpdatePosition)
	})

	return r
}
