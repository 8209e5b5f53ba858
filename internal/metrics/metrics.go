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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordPostCreated()
	RecordPostDeleted()
	RecordAuthSuccess(method string)
	RecordAuthFailure(method string, code string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	SetStreamClients(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated   prometheus.Counter
	postsDeleted   prometheus.Counter
	authSuccess    *prometheus.CounterVec
	authFail       *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	streamClients  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniblog_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		postsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniblog_posts_deleted_total",
			Help: "削除された投稿の合計数",
		}),
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniblog_auth_success_total",
			Help: "認証成功の合計数（認証方式別）",
		}, []string{"method"}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniblog_auth_fail_total",
			Help: "認証失敗の合計数（認証方式・エラーコード別）",
		}, []string{"method", "code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniblog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "miniblog_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miniblog_stream_clients",
			Help: "SSE接続中のクライアント数",
		}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.postsDeleted,
		c.authSuccess,
		c.authFail,
		c.httpStatus,
		c.requestLatency,
		c.streamClients,
	)

	return c
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordPostDeleted は投稿削除を記録する。
func (c *Collector) RecordPostDeleted() {
	c.postsDeleted.Inc()
}

// RecordAuthSuccess は認証成功を記録する。methodは"password"か"google"。
func (c *Collector) RecordAuthSuccess(method string) {
	c.authSuccess.WithLabelValues(method).Inc()
}

// RecordAuthFailure は認証失敗をエラーコード付きで記録する。
func (c *Collector) RecordAuthFailure(method string, code string) {
	c.authFail.WithLabelValues(method, code).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// SetStreamClients はSSE接続中のクライアント数を記録する。
func (c *Collector) SetStreamClients(count int) {
	c.streamClients.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
