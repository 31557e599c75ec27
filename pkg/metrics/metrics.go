// Package metrics 后台BFF的Prometheus指标
//
// 指标分四组：
//   - BFF自身的HTTP请求（gin中间件记录）
//   - 上游REST API调用（apiclient记录，按端点与状态码）
//   - 熔断器状态
//   - 看板会话与操作、变更事件发布
//
// 使用：
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// 标签只使用有限取值（方法、路由模板、实体名、操作名），
// 不要把记录id、搜索词之类的高基数值放进标签
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTPRequestsTotal BFF请求总数 {method, path, status}
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration BFF请求耗时 {method, path}
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的BFF请求数
	HTTPRequestsInProgress prometheus.Gauge

	// UpstreamRequestsTotal 上游API调用总数 {method, endpoint, status}
	// status为0表示网络失败，408表示超时
	UpstreamRequestsTotal *prometheus.CounterVec

	// UpstreamRequestDuration 上游API调用耗时 {method, endpoint}
	UpstreamRequestDuration *prometheus.HistogramVec

	// CircuitBreakerState 熔断器状态 {name}，0=CLOSED 1=OPEN 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求 {name, result}，result: success/failure/rejected
	CircuitBreakerRequests *prometheus.CounterVec

	// DashboardSessionsActive 已挂载的看板会话数 {entity}
	DashboardSessionsActive *prometheus.GaugeVec

	// DashboardOperationsTotal 看板操作总数 {entity, operation, result}
	DashboardOperationsTotal *prometheus.CounterVec

	// EventsPublishedTotal 变更事件发布总数 {routing_key, result}
	EventsPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry，重复调用无副作用
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_http_requests_total",
				Help: "BFF HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_http_request_duration_seconds",
				Help:    "BFF HTTP请求耗时（秒）",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "admin_http_requests_in_progress",
				Help: "正在处理的BFF HTTP请求数",
			},
		)

		UpstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_upstream_requests_total",
				Help: "上游REST API调用总数",
			},
			[]string{"method", "endpoint", "status"},
		)

		UpstreamRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_upstream_request_duration_seconds",
				Help:    "上游REST API调用耗时（秒）",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		)

		CircuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "admin_circuit_breaker_state",
				Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		)

		CircuitBreakerRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_circuit_breaker_requests_total",
				Help: "熔断器请求总数",
			},
			[]string{"name", "result"},
		)

		DashboardSessionsActive = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "admin_dashboard_sessions_active",
				Help: "已挂载的看板会话数",
			},
			[]string{"entity"},
		)

		DashboardOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_dashboard_operations_total",
				Help: "看板操作总数",
			},
			[]string{"entity", "operation", "result"},
		)

		EventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_events_published_total",
				Help: "变更事件发布总数",
			},
			[]string{"routing_key", "result"},
		)
	})
}

// ObserveUpstream 记录一次上游调用
func ObserveUpstream(method, endpoint string, status int, elapsed time.Duration) {
	InitMetrics()
	UpstreamRequestsTotal.With(prometheus.Labels{
		"method":   method,
		"endpoint": endpoint,
		"status":   strconv.Itoa(status),
	}).Inc()
	UpstreamRequestDuration.With(prometheus.Labels{
		"method":   method,
		"endpoint": endpoint,
	}).Observe(elapsed.Seconds())
}

// RecordBreakerState 记录熔断器状态（state取circuitbreaker.State的整数值）
func RecordBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.With(prometheus.Labels{"name": name}).Set(float64(state))
}

// RecordBreakerRequest 记录熔断器放行结果
func RecordBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.With(prometheus.Labels{"name": name, "result": result}).Inc()
}

// RecordDashboardOp 记录看板操作，err为nil计为success
func RecordDashboardOp(entity, operation string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	DashboardOperationsTotal.With(prometheus.Labels{
		"entity":    entity,
		"operation": operation,
		"result":    result,
	}).Inc()
}

// SessionMounted 会话挂载/卸载
func SessionMounted(entity string, delta float64) {
	InitMetrics()
	DashboardSessionsActive.With(prometheus.Labels{"entity": entity}).Add(delta)
}

// RecordEventPublished 记录事件发布
func RecordEventPublished(routingKey string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublishedTotal.With(prometheus.Labels{"routing_key": routingKey, "result": result}).Inc()
}

