package server

import (
	"context"
	"errors"
	"fmt"
	"fundverse/config"
	"fundverse/internal/global/database"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/middleware"
	"fundverse/internal/global/sentry"
	"fundverse/internal/module"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

var log *slog.Logger

// Init 读取配置后初始化 Sentry、存储和各模块
func Init() {
	config.Init()
	log = logger.New("Server")

	if err := sentry.Init(); err != nil {
		log.Error("Sentry 初始化失败", "error", err)
	}

	database.Init()
	InitModules()
}

func InitModules() {
	if log == nil {
		log = logger.New("Server")
	}
	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init()
	}
}

// NewEngine 组装中间件和路由，测试中配合 httptest 使用
func NewEngine() *gin.Engine {
	cfg := config.Get()
	gin.SetMode(string(cfg.Mode))
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(sentry.Middleware())
	r.Use(middleware.SentryEnrichIP())
	switch cfg.Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())

	for _, m := range module.Modules {
		m.InitRouter(r.Group("/" + cfg.Prefix))
	}
	return r
}

// Run 收到 SIGINT/SIGTERM 后优雅退出
func Run() error {
	cfg := config.Get()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           NewEngine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP 服务启动", "addr", srv.Addr, "prefix", "/"+cfg.Prefix)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("正在关闭 HTTP 服务")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("关闭 HTTP 服务失败", "error", err)
		}
	}

	database.Close()
	sentry.Flush(2 * time.Second)
	return nil
}
