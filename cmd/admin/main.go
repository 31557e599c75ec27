// @title           Bookstore Admin BFF
// @version         1.0
// @description     图书商城后台看板服务：会话化的列表、搜索、分页、表单与导出
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/xiebiao/bookstore-admin/docs"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/logger"
	"github.com/xiebiao/bookstore-admin/pkg/metrics"
	"github.com/xiebiao/bookstore-admin/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 配置与日志
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"mode":    cfg.Server.Mode,
		"api":     cfg.API.BaseURL,
		"redis":   cfg.Redis.Enabled,
		"mq":      cfg.MQ.Enabled,
		"tracing": cfg.Tracing.Enabled,
	}).Info("config loaded")

	// 2. 链路追踪与指标
	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.WithError(err).Fatal("init tracer failed")
	}
	metrics.InitMetrics()

	// 3. 依赖注入
	router, cleanup, err := InitializeApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("initialize app failed")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("admin bff listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	// 4. 优雅关闭：先停HTTP，再释放会话、Redis、MQ，最后刷新Span
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("http server forced to shutdown")
	}
	cleanup()
	if err := shutdownTracer(ctx); err != nil {
		log.WithError(err).Warn("flush spans failed")
	}
	log.Info("bye")
}
