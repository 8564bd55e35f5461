package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	AuthRate        rate.Limit    // ログイン・登録のレート（req/sec）。10/60
	AuthBurst       int           // ログイン・登録のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min、ログイン・登録 10 req/min。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		AuthRate:        rate.Limit(10.0 / 60.0),
		AuthBurst:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet はキーごとのリミッターの集合。
type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{limit: limit, burst: burst, limiters: make(map[string]*clientLimiter)}
}

// get はキーのリミッターを取得または作成し、最終アクセス時刻を更新する。
func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = cl
	}
	cl.lastAccess = now
	return cl.limiter
}

func (s *limiterSet) evict(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimiter はクライアントごとのレート制限を管理する。
// 認証済みリクエストはユーザー名、未認証リクエストはクライアントIPで識別する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterSet
	auth    *limiterSet
	stopCh  chan struct{}
	stopped sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterSet(config.GeneralRate, config.GeneralBurst),
		auth:    newLimiterSet(config.AuthRate, config.AuthBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでもよい。
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, rl.config.GeneralRate, "general")
}

// AuthMiddleware はログイン・登録専用のレート制限ミドルウェアを返す。
// パスワード総当たりを抑えるため、API全般より厳しい制限を独立に適用する。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.auth, rl.config.AuthRate, "auth")
}

func (rl *RateLimiter) middleware(set *limiterSet, limit rate.Limit, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !set.get(key, time.Now()).Allow() {
				writeRateLimitResponse(w, limit)
				slog.Warn("rate limit exceeded",
					slog.String("client", key),
					slog.String("limit_type", limitType),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// AuthLimiterCount は現在管理されているログイン・登録リミッターのエントリ数を返す。
func (rl *RateLimiter) AuthLimiterCount() int {
	return rl.auth.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.evict(now, ttl)
	rl.auth.evict(now, ttl)
}

// clientKey はレート制限の識別キーを返す。
func clientKey(r *http.Request) string {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return "user:" + actor.Username
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
