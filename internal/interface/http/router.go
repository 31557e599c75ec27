// Package http BFF的HTTP接口层
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-admin/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-admin/pkg/response"
)

// NewRouter 创建Gin引擎并注册路由
// 中间件顺序：Recovery → Tracing → Logger → Metrics → CORS → 路由匹配 → Auth → Handler
func NewRouter(
	cfg *config.Config,
	log logrus.FieldLogger,
	dashboardHandler *handler.DashboardHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.Tracing(),
		middleware.Logger(log),
		middleware.Metrics(),
		middleware.CORS(cfg.CORS),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 生产环境建议关闭或加访问控制
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	dashboards := v1.Group("/dashboards")
	dashboards.Use(authMiddleware.RequireAuth())
	{
		dashboards.GET("", dashboardHandler.List)
		dashboards.POST("/:entity", dashboardHandler.Mount)

		s := dashboards.Group("/sessions/:id")
		{
			s.GET("", dashboardHandler.State)
			s.DELETE("", dashboardHandler.Unmount)

			// 搜索
			s.POST("/search", dashboardHandler.Search)
			s.POST("/advanced-filter", dashboardHandler.AdvancedFilter)
			s.POST("/quick-filter", dashboardHandler.QuickFilter)
			s.POST("/auto-filter", dashboardHandler.AutoFilter)
			s.POST("/clear-search", dashboardHandler.ClearSearch)

			// 分页
			s.POST("/page", dashboardHandler.ChangePage)
			s.POST("/page-size", dashboardHandler.ChangePageSize)
			s.POST("/sort", dashboardHandler.ChangeSort)
			s.POST("/refresh", dashboardHandler.Refresh)

			// 表单与弹窗
			s.POST("/form/create", dashboardHandler.OpenCreate)
			s.POST("/form/edit/:entityId", dashboardHandler.OpenEdit)
			s.POST("/form/cancel", dashboardHandler.CancelForm)
			s.POST("/form/submit", dashboardHandler.SubmitForm)
			s.POST("/view/close", dashboardHandler.CloseView)
			s.POST("/view/:entityId", dashboardHandler.OpenView)
			s.POST("/delete/confirm", dashboardHandler.ConfirmDelete)
			s.POST("/delete/cancel", dashboardHandler.CancelDelete)
			s.POST("/delete/:entityId", dashboardHandler.OpenDelete)

			s.GET("/export", dashboardHandler.Export)
		}
	}

	return r
}
