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
// ガード評価、遷移監視、注文サービス、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordGuardDecision(class, outcome string)
	RecordRestoreWait(d time.Duration, timedOut bool)
	RecordForcedLogout(from, to string)
	RecordOrderCreated(totalCents int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	guardDecisions  *prometheus.CounterVec
	restoreWait     prometheus.Histogram
	restoreTimeouts prometheus.Counter
	forcedLogouts   *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	orderRevenue    prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bakery_guard_decisions_total",
			Help: "ルート分類・判定結果別のガード評価数",
		}, []string{"class", "outcome"}),
		restoreWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bakery_restore_wait_seconds",
			Help:    "セッション復元待ちの時間（秒）",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5},
		}),
		restoreTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_restore_wait_timeouts_total",
			Help: "待機上限に達したセッション復元待ちの数",
		}),
		forcedLogouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bakery_forced_logouts_total",
			Help: "ロールをまたぐ戻る操作による強制ログアウト数",
		}, []string{"from", "to"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_orders_created_total",
			Help: "作成された注文の合計数",
		}),
		orderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_order_revenue_cents_total",
			Help: "作成された注文の合計金額（センティモ）",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bakery_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.guardDecisions,
		c.restoreWait,
		c.restoreTimeouts,
		c.forcedLogouts,
		c.ordersCreated,
		c.orderRevenue,
		c.httpStatus,
	)

	return c
}

// RecordGuardDecision はガード評価の結果を記録する。
func (c *Collector) RecordGuardDecision(class, outcome string) {
	c.guardDecisions.WithLabelValues(class, outcome).Inc()
}

// RecordRestoreWait はセッション復元待ちの時間を記録する。
func (c *Collector) RecordRestoreWait(d time.Duration, timedOut bool) {
	c.restoreWait.Observe(d.Seconds())
	if timedOut {
		c.restoreTimeouts.Inc()
	}
}

// RecordForcedLogout は強制ログアウトを記録する。ラベルはルート分類。
func (c *Collector) RecordForcedLogout(from, to string) {
	c.forcedLogouts.WithLabelValues(from, to).Inc()
}

// RecordOrderCreated は注文の作成を記録する。
func (c *Collector) RecordOrderCreated(totalCents int64) {
	c.ordersCreated.Inc()
	c.orderRevenue.Add(float64(totalCents))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
