package cli

import (
	"context"
	"fundverse/config"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/session"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// app 一次命令执行所需的全部依赖
type app struct {
	cfg       *config.Config
	store     *kvstore.Service
	client    *apiclient.Client
	session   *session.Session
	campaigns *repository.CampaignRepository
	users     *repository.UserRepository
	log       *slog.Logger
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Remote {
		cfg.API.Mode = apiclient.ModeRemote.String()
	}
	if opts.API != "" {
		cfg.API.BaseURL = opts.API
	}
	fallback, err := persistentStorage(cfg)
	if err != nil {
		return nil, err
	}
	config.Set(cfg)

	mode, err := apiclient.ParseMode(cfg.API.Mode)
	if err != nil {
		return nil, err
	}
	apiclient.SetMode(mode)

	log := logger.Discard()
	if opts.Verbose {
		log = logger.New("CLI")
	}

	if fallback {
		log.Info("memory 驱动无法跨命令保存数据，改用 sqlite", "path", cfg.Storage.Path)
	}

	// 远程模式下本地存储只保存登录态
	store, err := kvstore.Open(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	client := apiclient.New(apiclient.OptionsFromConfig(cfg))

	a := &app{
		cfg:       cfg,
		store:     store,
		client:    client,
		session:   session.New(ctx, store, session.WithClient(client), session.WithLogger(log)),
		campaigns: repository.NewCampaignRepository(store, repository.WithRemote(client), repository.WithLogger(log)),
		users:     repository.NewUserRepository(store, repository.WithLogger(log)),
		log:       log,
	}

	// 与服务端启动时一致，本地存储里保证有管理员账号
	if mode == apiclient.ModeLocal && cfg.Admin.Password != "" {
		if _, err := a.users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// persistentStorage 每条命令都是独立进程，memory 驱动会丢掉登录态和数据
// 未指定持久化介质时改用用户配置目录下的 sqlite 文件
func persistentStorage(cfg *config.Config) (bool, error) {
	if cfg.Storage.Driver != "" && cfg.Storage.Driver != kvstore.DriverMemory {
		return false, nil
	}
	cfg.Storage.Driver = kvstore.DriverSQLite
	if cfg.Storage.Path != "" && cfg.Storage.Path != config.DefaultStoragePath {
		return true, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return false, errors.Wrap(err, "locate user config dir")
	}
	dir = filepath.Join(dir, "fundverse")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, errors.Wrap(err, "create data dir")
	}
	cfg.Storage.Path = filepath.Join(dir, config.DefaultStoragePath)
	return true, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("关闭存储失败", "error", err)
	}
}

func (a *app) remote() bool {
	return apiclient.IsRemote()
}

// requireRole 本地模式下用会话代替服务端鉴权；远程模式交给服务端判断
func (a *app) requireRole(roles ...model.Role) error {
	if a.remote() {
		return nil
	}
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in: run `fundverse user login` first")
	}
	if len(roles) > 0 && !a.session.HasRole(roles...) {
		return errors.Errorf("permission denied: requires role %v", roles)
	}
	return nil
}

// isAdmin 远程模式下真实权限由服务端判断
func (a *app) isAdmin() bool {
	return a.session.HasRole(model.RoleAdmin)
}

// run 打开依赖、执行 fn 并在结束时释放
func run(ctx context.Context, opts *RootOptions, fn func(a *app) error) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
