// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// クエリ結果のラベル値。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNetwork = "network_failure"
)

// Recorder はメトリクス収集のインターフェース。
// 認証クエリとセッションゲートから利用する。
type Recorder interface {
	RecordQuery(operation, outcome string, duration time.Duration)
	RecordGateOutcome(phase string)
	RecordNavigation(path string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	queryTotal   *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	gateOutcome  *prometheus.CounterVec
	navigation   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_query_total",
			Help: "認証クエリの結果別の合計数",
		}, []string{"operation", "outcome"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessiongate_query_latency_seconds",
			Help:    "認証クエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		gateOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_gate_outcome_total",
			Help: "セッションゲートの判定結果別の合計数",
		}, []string{"phase"}),
		navigation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_navigation_total",
			Help: "遷移先パス別の画面遷移数",
		}, []string{"path"}),
	}

	reg.MustRegister(
		c.queryTotal,
		c.queryLatency,
		c.gateOutcome,
		c.navigation,
	)

	return c
}

// RecordQuery はクエリ結果とレイテンシを記録する。
func (c *Collector) RecordQuery(operation, outcome string, duration time.Duration) {
	c.queryTotal.WithLabelValues(operation, outcome).Inc()
	c.queryLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGateOutcome はゲートの判定結果を記録する。
func (c *Collector) RecordGateOutcome(phase string) {
	c.gateOutcome.WithLabelValues(phase).Inc()
}

// RecordNavigation は画面遷移を記録する。
func (c *Collector) RecordNavigation(path string) {
	c.navigation.WithLabelValues(path).Inc()
}

// Noop は何も記録しないRecorder。
type Noop struct{}

func (Noop) RecordQuery(string, string, time.Duration) {}
func (Noop) RecordGateOutcome(string)                  {}
func (Noop) RecordNavigation(string)                   {}

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

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
