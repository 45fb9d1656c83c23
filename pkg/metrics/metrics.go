package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标集合
// 说明：指标注册在注入的Registry上，不使用包级全局变量（测试可以各自创建独立Registry）
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInProgress prometheus.Gauge

	// 订单
	OrdersCreatedTotal     *prometheus.CounterVec
	OrdersFailedTotal      *prometheus.CounterVec
	OrderCreationDuration  prometheus.Histogram
	OrderNumberRetries     prometheus.Counter
	StatusTransitionsTotal *prometheus.CounterVec

	// 外部依赖
	CatalogRequestDuration *prometheus.HistogramVec
	CircuitBreakerState    *prometheus.GaugeVec

	// 消息
	MessagesPublishedTotal *prometheus.CounterVec
}

// New 在给定Registry上注册全部指标
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP请求总数",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP请求耗时（秒）",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "正在处理的HTTP请求数",
			},
		),

		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "订单创建总数",
			},
			[]string{"delivery_type"},
		),
		OrdersFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_failed_total",
				Help: "订单创建失败总数",
			},
			[]string{"error_code"},
		),
		OrderCreationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_creation_duration_seconds",
				Help:    "订单创建耗时（秒）",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		OrderNumberRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "order_number_retries_total",
				Help: "订单号冲突重试次数",
			},
		),
		StatusTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "订单状态流转次数",
			},
			[]string{"from", "to"},
		),

		CatalogRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_request_duration_seconds",
				Help:    "商品服务调用耗时（秒）",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"result"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		),

		MessagesPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_published_total",
				Help: "消息发布总数",
			},
			[]string{"routing_key", "result"},
		),
	}
}

// NewDefault 创建带Go运行时与进程指标的Registry
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Registry 底层Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
