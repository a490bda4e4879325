package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "study",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests broken down by route and status class.",
	}, []string{"route", "result"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "study",
		Subsystem: "http",
		Name:      "latency_seconds",
		Help:      "Latency distribution for HTTP requests.",
		Buckets: []float64{
			0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"route", "result"})

	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "study",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Rows processed by the ingestion executor broken down by import type and outcome.",
	}, []string{"import_type", "outcome"})

	provisionedModules = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "study",
		Subsystem: "import",
		Name:      "provisioned_modules_total",
		Help:      "Stub modules created for unresolved module codes.",
	})

	wizardSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "study",
		Subsystem: "import",
		Name:      "wizard_sessions",
		Help:      "Import wizard sessions currently held in memory.",
	})
)

// ObserveRequest 记录一次 HTTP 请求
func ObserveRequest(route string, status int, seconds float64) {
	result := statusClass(status)
	httpRequests.WithLabelValues(route, result).Inc()
	httpLatency.WithLabelValues(route, result).Observe(seconds)
}

// ObserveIngestRow 记录一行导入结果；outcome 为 success 或错误分类
func ObserveIngestRow(importType, outcome string) {
	importRows.WithLabelValues(importType, outcome).Inc()
}

// AddProvisionedModules 累加自动创建的模块数
func AddProvisionedModules(n int) {
	if n > 0 {
		provisionedModules.Add(float64(n))
	}
}

// SetWizardSessions 更新内存中向导会话数量
func SetWizardSessions(n int) {
	wizardSessions.Set(float64(n))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
