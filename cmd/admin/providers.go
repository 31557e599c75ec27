package main

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-admin/internal/application/session"
	"github.com/xiebiao/bookstore-admin/internal/dashboard"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/apiclient"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/auth"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/events"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-admin/pkg/jwt"
	"github.com/xiebiao/bookstore-admin/pkg/request"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

// cursorTTL 分页游标在Redis中的保留时间
const cursorTTL = 7 * 24 * time.Hour

// provideRedisClient 未启用Redis时返回nil，下游退回内存实现
func provideRedisClient(cfg *config.Config, log logrus.FieldLogger) (*goredis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		log.Info("redis disabled, using in-memory blacklist")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideBlacklist(client *goredis.Client) auth.Blacklist {
	if client == nil {
		return auth.NewMemoryBlacklist()
	}
	return redis.NewTokenBlacklist(client)
}

// provideCursorRepository 没有Redis时不持久化游标
func provideCursorRepository(client *goredis.Client) session.CursorRepository {
	if client == nil {
		return nil
	}
	return redis.NewPaginationRepository(client, cursorTTL)
}

func provideInspector(cfg *config.Config) *jwt.Inspector {
	return jwt.NewInspector(cfg.Auth.Secret, cfg.Auth.Leeway)
}

// provideInvalidator 拉黑时长取令牌剩余有效期
func provideInvalidator(cfg *config.Config, blacklist auth.Blacklist, inspector *jwt.Inspector, log logrus.FieldLogger) request.AuthInvalidator {
	ttl := func(token string) time.Duration {
		return inspector.RemainingTTL(token, cfg.Auth.BlacklistTTL)
	}
	return auth.NewInvalidator(blacklist, ttl, log)
}

// provideAPIClient 请求令牌优先取当前请求携带的，没有时用配置里的服务令牌
func provideAPIClient(cfg *config.Config, log logrus.FieldLogger) *apiclient.Client {
	tokens := auth.ContextTokenSource{Fallback: cfg.API.Token}
	return apiclient.New(cfg.API, tokens, log,
		apiclient.WithBreaker(apiclient.NewBreaker(cfg.API.Breaker, log)))
}

// provideNotifier 未启用MQ时为空实现
func provideNotifier(cfg *config.Config, log logrus.FieldLogger) (dashboard.MutationNotifier, func(), error) {
	return events.NewNotifier(cfg.MQ, log)
}

// provideRetryPolicy 在默认策略上覆盖配置项；retry_max为0表示不重试
func provideRetryPolicy(cfg config.APIConfig) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = cfg.RetryMax
	if cfg.RetryInitialInterval > 0 {
		p.InitialInterval = cfg.RetryInitialInterval
	}
	return p
}

// provideSessionManager 创建会话管理器并启动过期清理
func provideSessionManager(
	cfg *config.Config,
	client *apiclient.Client,
	repo session.CursorRepository,
	notifier dashboard.MutationNotifier,
	invalidator request.AuthInvalidator,
	log logrus.FieldLogger,
) (*session.Manager, func()) {
	m := session.NewManager(session.Deps{
		Client:      client,
		Config:      cfg.Dashboard,
		Retry:       provideRetryPolicy(cfg.API),
		Repository:  repo,
		Notifier:    notifier,
		Invalidator: invalidator,
		Logger:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	return m, func() {
		cancel()
		m.Close()
	}
}
