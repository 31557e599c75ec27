// Package apiclient 书店REST API的底层HTTP客户端
//
// 职责：
// 1. 拼接URL、序列化请求体、附加 Authorization: Bearer <token>
// 2. 解析成功信封 {data, meta}（也接受裸数组/裸对象）
// 3. 非2xx响应解析为 APIError{message, error, statusCode}
// 4. 连接失败 → statusCode 0 / NetworkError，超时 → 408
// 5. 每次调用经过熔断器，并记录span与Prometheus指标
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/metrics"
	"github.com/xiebiao/bookstore-admin/pkg/tracing"
)

const tracerName = "bookstore-admin/apiclient"

// TokenSource 提供访问令牌，返回空串表示不带Authorization头
type TokenSource interface {
	Token(ctx context.Context) string
}

// Request 一次API调用
type Request struct {
	Method string
	Path   string // 相对base_url，如 /books/b1
	Route  string // 指标与span名使用的路由模板，如 /books/:id；为空时取Path
	Query  url.Values
	Body   any
}

// Response 成功响应
type Response struct {
	Status int
	Data   json.RawMessage // 信封中的data；无信封时为整个响应体
	Meta   json.RawMessage // 信封中的meta，可能为空
	Raw    []byte
}

// Client REST客户端
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  TokenSource
	breaker *circuitbreaker.CircuitBreaker
	log     logrus.FieldLogger
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层http.Client（测试用）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreaker 替换熔断器
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New 创建客户端
func New(cfg config.APIConfig, tokens TokenSource, log logrus.FieldLogger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		timeout: cfg.Timeout,
		tokens:  tokens,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(cfg.Breaker, log)
	}
	return c
}

// NewBreaker 只把网络错误与5xx计为失败
func NewBreaker(cfg config.BreakerConfig, log logrus.FieldLogger) *circuitbreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	cb := circuitbreaker.New("bookstore-api", circuitbreaker.Config{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: circuitbreaker.ConsecutiveFailures(threshold),
		IsFailure:   apperrors.IsRetryable,
	})
	cb.OnStateChange(func(name string, from, to circuitbreaker.State) {
		metrics.RecordBreakerState(name, int(to))
		log.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("circuit breaker state changed")
	})
	return cb
}

// Do 执行请求
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	route := req.Route
	if route == "" {
		route = req.Path
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, req.Method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var resp *Response
	start := time.Now()
	err := c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.do(ctx, req)
		return callErr
	})

	status := apperrors.StatusCode(err)
	switch {
	case err == nil:
		status = resp.Status
		metrics.RecordBreakerRequest(c.breaker.Name(), "success")
	case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		metrics.RecordBreakerRequest(c.breaker.Name(), "rejected")
		err = apperrors.NewNetworkError(req.Path, err)
		status = apperrors.StatusNetwork
	default:
		metrics.RecordBreakerRequest(c.breaker.Name(), "failure")
	}
	metrics.ObserveUpstream(req.Method, route, status, time.Since(start))

	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WithFields(logrus.Fields{
			"method":   req.Method,
			"path":     req.Path,
			"status":   status,
			"trace_id": tracing.ExtractTraceID(ctx),
		}).WithError(err).Debug("api call failed")
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, normalizeTransportError(req.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, normalizeTransportError(req.Path, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, decodeError(req.Path, httpResp.StatusCode, raw)
	}

	resp := &Response{Status: httpResp.StatusCode, Raw: raw}
	decodeEnvelope(raw, resp)
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	tracing.InjectHTTP(ctx, httpReq.Header)
	return httpReq, nil
}

// decodeEnvelope 识别 {data, meta} 信封，否则整个响应体作为data
func decodeEnvelope(raw []byte, resp *Response) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if data, ok := env["data"]; ok {
				resp.Data = data
				resp.Meta = env["meta"]
				return
			}
		}
	}
	resp.Data = json.RawMessage(trimmed)
}

// errorBody 服务端错误信封，message可能是字符串或字符串数组
type errorBody struct {
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
	StatusCode int             `json:"statusCode"`
}

func decodeError(path string, status int, raw []byte) error {
	apiErr := &apperrors.APIError{StatusCode: status, Endpoint: path}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Messages = decodeMessages(body.Message)
		apiErr.ErrorName = body.Error
		if body.StatusCode != 0 {
			apiErr.StatusCode = body.StatusCode
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 512 {
		apiErr.Messages = []string{text}
	}

	if apiErr.ErrorName == "" {
		apiErr.ErrorName = http.StatusText(status)
	}
	return apiErr
}

func decodeMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// normalizeTransportError 超时 → 408，其他传输错误 → 网络错误
func normalizeTransportError(path string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(path, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError(path, err)
	}
	return apperrors.NewNetworkError(path, err)
}
