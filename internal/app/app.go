package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/startupnetwork/internal/auth"
	"github.com/hitoshi/startupnetwork/internal/config"
	"github.com/hitoshi/startupnetwork/internal/field"
	"github.com/hitoshi/startupnetwork/internal/handler"
	"github.com/hitoshi/startupnetwork/internal/logger"
	"github.com/hitoshi/startupnetwork/internal/logo"
	"github.com/hitoshi/startupnetwork/internal/metrics"
	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/security"
	"github.com/hitoshi/startupnetwork/internal/startup"
	"github.com/hitoshi/startupnetwork/internal/store"
	"github.com/hitoshi/startupnetwork/internal/user"
	"github.com/hitoshi/startupnetwork/internal/worker/cleanup"
)

// formOverheadBytes はロゴ以外のフォーム項目とmultipart境界に見込むサイズ。
const formOverheadBytes = 1 << 20

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで停止する。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("data_dir", cfg.DataDir),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandBootstrap:
		return runBootstrap(ctx, cfg)
	default:
		return runServe(ctx, cfg, nil)
	}
}

// components はサブコマンド間で共有する依存関係。
type components struct {
	registry    *prometheus.Registry
	collector   *metrics.Collector
	store       *store.Store
	logos       *logo.Storage
	users       *user.Service
	sessions    *auth.Service
	startups    *startup.Service
	fields      *field.Service
	rateLimiter *middleware.RateLimiter
}

// build は設定から全依存関係をワイヤリングする。
func build(cfg *config.Config) (*components, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 1. ストレージ
	st, err := store.Open(cfg.DataDir, store.WithObserver(collector), store.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logoStorage, err := logo.NewStorage(cfg.LogoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open logo directory: %w", err)
	}

	// 2. ドメインサービス
	users := user.NewService(st)
	sessions := auth.NewService(users, auth.NewSessionStore(), auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	processor := logo.NewProcessor(logoStorage, logo.ProcessorConfig{
		Size:      cfg.LogoSize,
		MaxBytes:  cfg.LogoMaxBytes,
		MaxPixels: cfg.LogoMaxPixels,
	}, collector)
	startups := startup.NewService(st, processor, startup.WithSanitizer(security.NewTextSanitizer()))
	fields := field.NewService(st)

	// 3. レート制限（configはreq/min単位なのでreq/secに変換する）
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rlCfg.AuthBurst = cfg.RateLimitAuth

	return &components{
		registry:    reg,
		collector:   collector,
		store:       st,
		logos:       logoStorage,
		users:       users,
		sessions:    sessions,
		startups:    startups,
		fields:      fields,
		rateLimiter: middleware.NewRateLimiter(rlCfg),
	}, nil
}

// router はHTTPルーターを構築する。
func (c *components) router(cfg *config.Config) http.Handler {
	csrf := middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, CookieDomain: cfg.CookieDomain}
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionResolver:   c.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF:              csrf,
		RateLimiter:       c.rateLimiter,
		MaxBodyBytes:      cfg.LogoMaxBytes + formOverheadBytes,

		HealthChecker:  c.store,
		StatusRecorder: c.collector,
		MetricsHandler: metrics.Handler(c.registry),

		AuthService:   c.sessions,
		SignupService: c.users,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		StartupService: c.startups,
		FieldService:   c.fields,
		Logos:          c.logos,
	})
}

// seed は管理者ユーザーと既定の分野を用意する。既にあれば何もしない。
func (c *components) seed(ctx context.Context, cfg *config.Config) error {
	if err := c.users.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if err := c.fields.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed fields: %w", err)
	}
	return nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
// readyが指定された場合は待ち受け開始後にリスナーのアドレスを送る。
func runServe(ctx context.Context, cfg *config.Config, ready chan<- net.Addr) error {
	c, err := build(cfg)
	if err != nil {
		return err
	}
	defer c.rateLimiter.Stop()

	if err := c.seed(ctx, cfg); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      c.router(cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	// 期限切れセッションの定期削除
	go startSessionPurge(ctx, c.sessions, cfg.SessionPurgeInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// startSessionPurge はintervalごとに期限切れセッションを削除する。
func startSessionPurge(ctx context.Context, sessions *auth.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.PurgeExpired(); n > 0 {
				slog.Info("expired sessions purged", slog.Int("count", n))
			}
		}
	}
}

// runWorker はワーカーモードで起動する。
// 孤立ロゴのクリーンアップジョブを定期実行し、ctxがキャンセルされると終了する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	c, err := build(cfg)
	if err != nil {
		return err
	}
	c.rateLimiter.Stop()

	job := cleanup.NewCleanupJob(c.logos, c.startups, slog.Default(), c.collector)
	job.Grace = cfg.CleanupGrace

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("cleanup_grace", cfg.CleanupGrace),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runBootstrap は管理者ユーザーと既定の分野を作成して終了する。
func runBootstrap(ctx context.Context, cfg *config.Config) error {
	c, err := build(cfg)
	if err != nil {
		return err
	}
	c.rateLimiter.Stop()

	if err := c.seed(ctx, cfg); err != nil {
		return err
	}

	slog.Info("bootstrap completed",
		slog.String("admin_username", cfg.AdminUsername),
		slog.String("data_dir", cfg.DataDir),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
