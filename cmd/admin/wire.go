//go:build wireinject
// +build wireinject

// Wire依赖注入配置，修改后执行 `wire gen ./cmd/admin` 重新生成wire_gen.go
// Provider实现放在providers.go，生成代码也要用到

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	httpiface "github.com/xiebiao/bookstore-admin/internal/interface/http"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/middleware"
)

// infrastructureSet Redis、上游API客户端、MQ
var infrastructureSet = wire.NewSet(
	wire.Bind(new(logrus.FieldLogger), new(*logrus.Logger)),
	provideRedisClient,
	provideAPIClient,
	provideNotifier,
)

// authSet 令牌校验与失效
var authSet = wire.NewSet(
	provideInspector,
	provideBlacklist,
	provideInvalidator,
)

// sessionSet 看板会话
var sessionSet = wire.NewSet(
	provideCursorRepository,
	provideSessionManager,
)

// handlerSet 接口层
var handlerSet = wire.NewSet(
	handler.NewDashboardHandler,
	middleware.NewAuthMiddleware,
	httpiface.NewRouter,
)

// InitializeApp 组装完整的Gin引擎
// cfg与log由main先创建，启动失败时也能输出日志
func InitializeApp(cfg *config.Config, log *logrus.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		authSet,
		sessionSet,
		handlerSet,
	)
	return nil, nil, nil
}
