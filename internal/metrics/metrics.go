// Package metrics 定义服务的 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标；nil 接收者上的方法都是空操作
type Metrics struct {
	registry *prometheus.Registry

	ProxyAttempts      *prometheus.CounterVec
	Searches           *prometheus.CounterVec
	SearchResults      prometheus.Histogram
	KeywordExtractions *prometheus.CounterVec
	ImageLoads         *prometheus.CounterVec
	Exports            *prometheus.CounterVec
}

// New 在独立 Registry 上创建指标，避免重复注册
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProxyAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjalkak_proxy_attempts_total",
			Help: "CORS proxy attempts by proxy and outcome",
		}, []string{"proxy", "outcome"}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjalkak_searches_total",
			Help: "Searches by phase (direct, keywords, keyword_edit, queue)",
		}, []string{"phase"}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "jjalkak_search_results",
			Help:    "Number of results handed to the client per search",
			Buckets: []float64{0, 1, 2, 5, 8, 10},
		}),
		KeywordExtractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjalkak_keyword_extractions_total",
			Help: "Keyword extractions by source (llm, fallback, local)",
		}, []string{"source"}),
		ImageLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjalkak_image_loads_total",
			Help: "Editor image load attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjalkak_exports_total",
			Help: "Editor exports by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ProxyAttempt(proxy, outcome string) {
	if m == nil {
		return
	}
	m.ProxyAttempts.WithLabelValues(proxy, outcome).Inc()
}

func (m *Metrics) Search(phase string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(phase).Inc()
}

func (m *Metrics) ObserveResults(n int) {
	if m == nil {
		return
	}
	m.SearchResults.Observe(float64(n))
}

func (m *Metrics) KeywordExtraction(source string) {
	if m == nil {
		return
	}
	m.KeywordExtractions.WithLabelValues(source).Inc()
}

func (m *Metrics) ImageLoad(strategy, outcome string) {
	if m == nil {
		return
	}
	m.ImageLoads.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) Export(kind, outcome string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(kind, outcome).Inc()
}
