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
// サービス層、ディレクトリクライアント、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordDirectoryRequest(endpoint string, statusCode int, duration time.Duration)
	RecordAccessDenied(resource string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins           *prometheus.CounterVec
	directoryReqs    *prometheus.CounterVec
	directoryLatency *prometheus.HistogramVec
	accessDenied     *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_login_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"outcome"}),
		directoryReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_directory_requests_total",
			Help: "外部ディレクトリへのリクエスト数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status_code"}),
		directoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postboard_directory_request_duration_seconds",
			Help:    "外部ディレクトリへのリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_access_denied_total",
			Help: "閲覧権限の拒否数（リソース種別）",
		}, []string{"resource"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.directoryReqs,
		c.directoryLatency,
		c.accessDenied,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordDirectoryRequest は外部ディレクトリへのリクエストを記録する。
// 接続エラーなどでレスポンスがない場合のstatusCodeは0。
func (c *Collector) RecordDirectoryRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.directoryReqs.WithLabelValues(endpoint, status).Inc()
	c.directoryLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAccessDenied は閲覧権限の拒否を記録する。
func (c *Collector) RecordAccessDenied(resource string) {
	c.accessDenied.WithLabelValues(resource).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
