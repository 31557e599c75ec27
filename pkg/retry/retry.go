// Package retry 指数退避重试
//
// 只重试可重试的错误（网络错误、5xx），参数错误/认证失败立即返回
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
)

// Policy 重试策略
type Policy struct {
	MaxRetries      uint64        // 最大重试次数（不含首次调用），0表示不重试
	InitialInterval time.Duration // 首次退避间隔
	MaxInterval     time.Duration // 单次退避上限
	MaxElapsedTime  time.Duration // 总时长上限，0表示不限制

	// Retryable 判断错误是否可重试，默认按错误分类（network/server）
	Retryable func(error) bool
}

// DefaultPolicy 默认策略：最多重试3次，300ms起步，单次间隔不超过5s，总计不超过30s
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 300 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = p.MaxElapsedTime

	var b backoff.BackOff = eb
	b = backoff.WithMaxRetries(b, p.MaxRetries)
	return backoff.WithContext(b, ctx)
}

// Do 执行fn，失败且可重试时按指数退避重试
// notify在每次重试前调用（可为nil），用于记日志
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), notify func(err error, wait time.Duration)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = apperrors.IsRetryable
	}

	op := func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	if p.MaxRetries == 0 {
		return fn(ctx)
	}
	return backoff.RetryNotifyWithData(op, p.backOff(ctx), notify)
}
