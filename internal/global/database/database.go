// Package database 持有服务进程内唯一的存储和仓库实例
//
// 服务端始终使用本地模式：远程模式的请求最终落到这里。
package database

import (
	"context"
	"fundverse/config"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/repository"
	"fundverse/tools"
	"log/slog"
)

var (
	KV        *kvstore.Service
	Campaigns *repository.CampaignRepository
	Users     *repository.UserRepository
)

var log *slog.Logger

func Init() {
	log = logger.New("Database")
	cfg := config.Get()

	store, err := kvstore.Open(cfg, logger.New("KVStore"))
	tools.PanicOnErr(err)
	Use(store)

	if cfg.Admin.Password == "" {
		log.Warn("未配置管理员密码，跳过创建管理员")
		return
	}
	_, err = Users.EnsureAdmin(context.Background(), cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
	tools.PanicOnErr(err)
}

// Use 以本地模式挂载 store，测试中直接传入内存存储
func Use(store *kvstore.Service, opts ...repository.Option) {
	local := append([]repository.Option{
		repository.WithMode(func() apiclient.Mode { return apiclient.ModeLocal }),
	}, opts...)

	KV = store
	Campaigns = repository.NewCampaignRepository(store, local...)
	Users = repository.NewUserRepository(store, local...)
}

// Close 服务退出时释放底层连接
func Close() {
	if KV == nil {
		return
	}
	if err := KV.Close(); err != nil && log != nil {
		log.Error("关闭存储失败", "error", err)
	}
}
