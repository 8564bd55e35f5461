// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストア、ロゴ処理、HTTPミドルウェアから利用する。
// store.Observerとlogo.Recorderを兼ねる。
type MetricsCollector interface {
	ObserveLoad(collection string, duration time.Duration, err error)
	ObserveSave(collection string, duration time.Duration, err error)
	ObserveLockWait(collection string, duration time.Duration)
	RecordLogoProcessed(duration time.Duration)
	RecordLogoRejected(reason string)
	RecordHTTPStatus(statusCode int)
	RecordLogosCleaned(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	storeLoads    *prometheus.CounterVec
	storeSaves    *prometheus.CounterVec
	storeSaveTime *prometheus.HistogramVec
	storeLockWait *prometheus.HistogramVec
	logoProcessed prometheus.Counter
	logoRejected  *prometheus.CounterVec
	logoLatency   prometheus.Histogram
	httpStatus    *prometheus.CounterVec
	logosCleaned  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupnetwork_store_loads_total",
			Help: "コレクション読み込みの合計数",
		}, []string{"collection", "result"}),
		storeSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupnetwork_store_saves_total",
			Help: "コレクション保存の合計数",
		}, []string{"collection", "result"}),
		storeSaveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "startupnetwork_store_save_seconds",
			Help:    "コレクション保存（一時ファイル書き込みからrenameまで）の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		storeLockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "startupnetwork_store_lock_wait_seconds",
			Help:    "コレクションロックの待ち時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		logoProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "startupnetwork_logo_processed_total",
			Help: "正規化して保存したロゴの合計数",
		}),
		logoRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupnetwork_logo_rejected_total",
			Help: "拒否したロゴアップロードの理由別の数",
		}, []string{"reason"}),
		logoLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "startupnetwork_logo_processing_seconds",
			Help:    "ロゴのデコードから保存までの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupnetwork_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		logosCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "startupnetwork_logos_cleaned_total",
			Help: "クリーンアップで削除した未参照ロゴの合計数",
		}),
	}

	reg.MustRegister(
		c.storeLoads,
		c.storeSaves,
		c.storeSaveTime,
		c.storeLockWait,
		c.logoProcessed,
		c.logoRejected,
		c.logoLatency,
		c.httpStatus,
		c.logosCleaned,
	)

	return c
}

// ObserveLoad はコレクションの読み込みを記録する。
func (c *Collector) ObserveLoad(collection string, _ time.Duration, err error) {
	c.storeLoads.WithLabelValues(collection, result(err)).Inc()
}

// ObserveSave はコレクションの保存を記録する。
func (c *Collector) ObserveSave(collection string, duration time.Duration, err error) {
	c.storeSaves.WithLabelValues(collection, result(err)).Inc()
	if err == nil {
		c.storeSaveTime.WithLabelValues(collection).Observe(duration.Seconds())
	}
}

// ObserveLockWait はコレクションロックの待ち時間を記録する。
func (c *Collector) ObserveLockWait(collection string, duration time.Duration) {
	c.storeLockWait.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordLogoProcessed はロゴ処理の成功を記録する。
func (c *Collector) RecordLogoProcessed(duration time.Duration) {
	c.logoProcessed.Inc()
	c.logoLatency.Observe(duration.Seconds())
}

// RecordLogoRejected はロゴアップロードの拒否を記録する。
func (c *Collector) RecordLogoRejected(reason string) {
	c.logoRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLogosCleaned はクリーンアップで削除したロゴ数を記録する。
func (c *Collector) RecordLogosCleaned(count int) {
	c.logosCleaned.Add(float64(count))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
