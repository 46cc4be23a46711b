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
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordBlockCreated()
	RecordBlockResolved()
	RecordAIRequest(kind string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	blocksCreated  prometheus.Counter
	blocksResolved prometheus.Counter
	aiRequests     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		blocksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocklog_blocks_created_total",
			Help: "作成されたブロッカーの合計数",
		}),
		blocksResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocklog_blocks_resolved_total",
			Help: "解決されたブロッカーの合計数",
		}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocklog_ai_requests_total",
			Help: "AI分析リクエストの種別・結果別の合計数",
		}, []string{"kind", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocklog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blocklog_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.blocksCreated,
		c.blocksResolved,
		c.aiRequests,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordBlockCreated はブロッカー作成を記録する。
func (c *Collector) RecordBlockCreated() {
	c.blocksCreated.Inc()
}

// RecordBlockResolved はブロッカー解決を記録する。
func (c *Collector) RecordBlockResolved() {
	c.blocksResolved.Inc()
}

// RecordAIRequest はAI分析リクエストの結果を記録する。
func (c *Collector) RecordAIRequest(kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.aiRequests.WithLabelValues(kind, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
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
