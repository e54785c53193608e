package media

import (
	"context"
	"fundverse/config"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/media"
	"log/slog"
)

var (
	log   *slog.Logger
	store *media.Store
)

type ModuleMedia struct{}

func (*ModuleMedia) GetName() string {
	return "Media"
}

// Init 未配置 bucket 时模块仍然注册路由，请求返回 503
func (*ModuleMedia) Init() {
	log = logger.New("Media")
	cfg := config.Get().S3
	if !media.Enabled(cfg) {
		log.Warn("未配置对象存储，媒体上传不可用")
		return
	}
	s, err := media.New(context.Background(), cfg)
	if err != nil {
		log.Error("初始化对象存储失败", "error", err)
		return
	}
	store = s
}

// Use 测试中替换对象存储
func Use(s *media.Store) {
	store = s
}
