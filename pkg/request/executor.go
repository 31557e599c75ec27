// Package request 通用请求执行器
//
// 每个Executor包装一类网络调用，维护 loading/error/data 状态：
//  1. 载荷在发出请求前按Validator预校验，失败不触发网络调用
//  2. 失败值按固定优先级规范化为展示文案
//  3. 认证失败（401/403或已知关键词）通知会话层清除凭证
//
// 并发说明：同一个Executor上并发的Execute互不排队也不取消，
// 各自把loading置为true，最后完成的调用覆盖共享状态（last-write-wins）
package request

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

// Func 实际的网络调用
type Func[P, R any] func(ctx context.Context, payload P) (R, error)

// AuthInvalidator 会话层：认证失败时清除已保存的凭证
type AuthInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Result 单次执行结果
type Result[R any] struct {
	Success          bool
	Data             R
	Err              error
	Message          string
	ErrorInfo        apperrors.Info
	ValidationErrors map[string][]string
}

// State 执行器当前状态
type State[R any] struct {
	Loading          bool
	Data             R
	HasData          bool
	Error            string
	ValidationErrors map[string][]string
}

// Executor 通用请求执行器
type Executor[P, R any] struct {
	operation string
	fn        Func[P, R]

	validator   Validator
	onSuccess   func(R)
	onError     func(Result[R])
	invalidator AuthInvalidator
	retry       *retry.Policy
	log         logrus.FieldLogger

	mu    sync.Mutex
	state State[R]
}

// Option 执行器选项
type Option func(*options)

type options struct {
	validator   Validator
	onSuccess   any
	onError     any
	invalidator AuthInvalidator
	retry       *retry.Policy
	log         logrus.FieldLogger
}

// WithValidator 设置预校验
func WithValidator(v Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithAuthInvalidator 设置认证失败时的会话层回调
func WithAuthInvalidator(inv AuthInvalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithRetry 对可重试错误启用指数退避
func WithRetry(p retry.Policy) Option {
	return func(o *options) { o.retry = &p }
}

// WithLogger 设置日志
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithOnSuccess 成功回调
func WithOnSuccess[R any](fn func(R)) Option {
	return func(o *options) { o.onSuccess = fn }
}

// WithOnError 失败回调（包括预校验失败）
func WithOnError[R any](fn func(Result[R])) Option {
	return func(o *options) { o.onError = fn }
}

// New 创建执行器
// operation: 端点或操作名，用于兜底错误文案（"Error de conexión en <operation>"）
func New[P, R any](operation string, fn Func[P, R], opts ...Option) *Executor[P, R] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	e := &Executor[P, R]{
		operation:   operation,
		fn:          fn,
		validator:   o.validator,
		invalidator: o.invalidator,
		retry:       o.retry,
		log:         o.log,
	}
	if fn, ok := o.onSuccess.(func(R)); ok {
		e.onSuccess = fn
	}
	if fn, ok := o.onError.(func(Result[R])); ok {
		e.onError = fn
	}
	if e.log == nil {
		e.log = discardLogger()
	}
	return e
}

// Execute 带载荷执行（有Validator时先预校验）
func (e *Executor[P, R]) Execute(ctx context.Context, payload P) Result[R] {
	return e.execute(ctx, payload)
}

func (e *Executor[P, R]) execute(ctx context.Context, payload P) Result[R] {
	// 1. 预校验（不触发网络调用）
	if e.validator != nil {
		if fields := e.validator.Validate(payload); len(fields) > 0 {
			err := &apperrors.ValidationError{Fields: fields}
			res := Result[R]{
				Err:              err,
				Message:          apperrors.MsgValidation,
				ErrorInfo:        apperrors.Classify(err),
				ValidationErrors: fields,
			}
			e.log.WithFields(logrus.Fields{
				"operation": e.operation,
				"fields":    SortedFields(fields),
			}).Debug("payload rejected before request")

			e.mu.Lock()
			e.state.ValidationErrors = fields
			e.state.Error = res.Message
			e.mu.Unlock()

			if e.onError != nil {
				e.onError(res)
			}
			return res
		}
	}

	// 2. 标记loading，清空上次错误
	e.mu.Lock()
	e.state.Loading = true
	e.state.Error = ""
	e.state.ValidationErrors = nil
	e.mu.Unlock()

	// 3. 发起调用
	start := time.Now()
	data, err := e.call(ctx, payload)

	if err == nil {
		e.mu.Lock()
		e.state.Loading = false
		e.state.Data = data
		e.state.HasData = true
		e.state.Error = ""
		e.mu.Unlock()

		e.log.WithFields(logrus.Fields{
			"operation": e.operation,
			"latency":   time.Since(start),
		}).Debug("request succeeded")

		if e.onSuccess != nil {
			e.onSuccess(data)
		}
		return Result[R]{Success: true, Data: data}
	}

	// 4. 失败：规范化文案
	res := Result[R]{
		Err:       err,
		Message:   apperrors.Message(err, e.operation),
		ErrorInfo: apperrors.Classify(err),
	}
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		res.ValidationErrors = vErr.Fields
	}

	e.mu.Lock()
	e.state.Loading = false
	e.state.Error = res.Message
	e.state.ValidationErrors = res.ValidationErrors
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"operation":  e.operation,
		"error_type": res.ErrorInfo.Type,
		"latency":    time.Since(start),
	}).WithError(err).Warn("request failed")

	// 5. 认证失败：通知会话层
	if apperrors.IsAuthFailure(err) && e.invalidator != nil {
		if invErr := e.invalidator.Invalidate(ctx); invErr != nil {
			e.log.WithError(invErr).Error("invalidate session failed")
		}
	}

	if e.onError != nil {
		e.onError(res)
	}
	return res
}

func (e *Executor[P, R]) call(ctx context.Context, payload P) (R, error) {
	if e.retry == nil {
		return e.fn(ctx, payload)
	}
	return retry.Do(ctx, *e.retry, func(ctx context.Context) (R, error) {
		return e.fn(ctx, payload)
	}, func(err error, wait time.Duration) {
		e.log.WithFields(logrus.Fields{
			"operation": e.operation,
			"wait":      wait,
		}).WithError(err).Info("retrying request")
	})
}

// Reset 清空状态
func (e *Executor[P, R]) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = State[R]{}
}

// Snapshot 当前状态拷贝
func (e *Executor[P, R]) Snapshot() State[R] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
