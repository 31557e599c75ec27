// Package auth 访问令牌的来源与失效处理
//
// BFF不签发令牌：浏览器拿着上游API签发的令牌调用BFF，
// 中间件把令牌放进context，apiclient再原样转发给上游。
// 上游返回认证失败时，Invalidator把该令牌拉黑，后续请求直接在BFF被拒绝
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type tokenKey struct{}

// WithToken 把令牌放入context
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext 读取context中的令牌
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// ContextTokenSource 优先使用请求携带的令牌，否则使用服务账号令牌
type ContextTokenSource struct {
	Fallback string
}

// Token 实现apiclient.TokenSource
func (s ContextTokenSource) Token(ctx context.Context) string {
	if token := TokenFromContext(ctx); token != "" {
		return token
	}
	return s.Fallback
}

// Blacklist 失效令牌存储
type Blacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// TTLFunc 计算令牌剩余有效期
type TTLFunc func(token string) time.Duration

// Invalidator 认证失败时使当前令牌失效
// 实现request.AuthInvalidator
type Invalidator struct {
	blacklist Blacklist
	ttl       TTLFunc
	log       logrus.FieldLogger
}

// NewInvalidator 创建Invalidator
func NewInvalidator(blacklist Blacklist, ttl TTLFunc, log logrus.FieldLogger) *Invalidator {
	return &Invalidator{blacklist: blacklist, ttl: ttl, log: log}
}

// Invalidate 拉黑context中的令牌；没有令牌时什么都不做
func (i *Invalidator) Invalidate(ctx context.Context) error {
	token := TokenFromContext(ctx)
	if token == "" {
		return nil
	}
	ttl := i.ttl(token)
	if err := i.blacklist.Add(ctx, token, ttl); err != nil {
		return err
	}
	i.log.WithField("ttl", ttl).Info("access token invalidated")
	return nil
}

// MemoryBlacklist 未启用Redis时使用的进程内黑名单
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlacklist 创建进程内黑名单
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

// Add 实现Blacklist
func (m *MemoryBlacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = m.now().Add(ttl)
	return nil
}

// Contains 实现Blacklist，顺便清理过期项
func (m *MemoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[token]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.entries, token)
		return false, nil
	}
	return true, nil
}
