package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 聊天链路的 Prometheus 指标集合
type Metrics struct {
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDuration        *prometheus.HistogramVec
	QuotaDeniedTotal    prometheus.Counter
	FailoverTotal       *prometheus.CounterVec
	RetryAttemptsTotal  prometheus.Counter
	UpstreamErrorsTotal *prometheus.CounterVec
	ActiveProviders     prometheus.Gauge
}

var (
	global *Metrics
	once   sync.Once
)

// Global 返回进程级指标单例，首次调用时注册到默认 registry
func Global() *Metrics {
	once.Do(func() {
		global = New(prometheus.DefaultRegisterer)
	})
	return global
}

// New 创建一套指标并注册到给定 registry
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegisx",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "聊天请求总数，按供应商和结果分类",
		}, []string{"provider", "outcome"}),

		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aegisx",
			Subsystem: "chat",
			Name:      "request_duration_seconds",
			Help:      "一次逻辑发送的端到端耗时（含重试）",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),

		QuotaDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegisx",
			Subsystem: "quota",
			Name:      "denied_total",
			Help:      "因配额用尽被拒绝的请求数",
		}),

		FailoverTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegisx",
			Subsystem: "chat",
			Name:      "failover_total",
			Help:      "故障转移次数，按源供应商分类",
		}, []string{"from"}),

		RetryAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegisx",
			Subsystem: "chat",
			Name:      "retry_attempts_total",
			Help:      "重试的发送尝试总数（不含首次尝试）",
		}),

		UpstreamErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegisx",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "上游供应商返回的错误数，按供应商和状态码分类",
		}, []string{"provider", "status"}),

		ActiveProviders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aegisx",
			Subsystem: "providers",
			Name:      "active",
			Help:      "当前启用的供应商数量",
		}),
	}

	reg.MustRegister(
		m.ChatRequestsTotal,
		m.ChatDuration,
		m.QuotaDeniedTotal,
		m.FailoverTotal,
		m.RetryAttemptsTotal,
		m.UpstreamErrorsTotal,
		m.ActiveProviders,
	)

	return m
}
