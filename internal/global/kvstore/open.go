package kvstore

import (
	"context"
	"fundverse/config"
	"fundverse/internal/global/sentry/tracing"
	"log/slog"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMySQL  = "mysql"
)

// Open 按 cfg.Storage.Driver 创建介质并包装为 Service
func Open(cfg *config.Config, log *slog.Logger) (*Service, error) {
	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("存储介质已就绪", "driver", cfg.Storage.Driver)
	return New(backend, WithLogger(log)), nil
}

func OpenBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case DriverMemory, "":
		return NewMemory(cfg.Storage.QuotaBytes), nil
	case DriverSQLite:
		return OpenSQLite(cfg.Storage.Path, cfg.Storage.QuotaBytes)
	case DriverRedis:
		return openRedis(cfg)
	case DriverMySQL:
		return openMySQL(cfg)
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openRedis(cfg *config.Config) (Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if tracing.IsEnabled(cfg.Sentry) {
		threshold := time.Duration(cfg.Sentry.Tracing.RedisSlowThresholdMs) * time.Millisecond
		client.AddHook(tracing.NewRedisHook(threshold))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewRedis(client), nil
}

// MySQLDSN 由配置拼出驱动 DSN
func MySQLDSN(c config.Mysql) string {
	dc := mysqldriver.NewConfig()
	dc.User = c.Username
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, c.Port)
	dc.DBName = c.DBName
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

func openMySQL(cfg *config.Config) (Backend, error) {
	gormConfig := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	}
	switch cfg.Mode {
	case config.ModeDebug:
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case config.ModeRelease:
		gormConfig.Logger = logger.Discard
	}

	db, err := gorm.Open(mysql.Open(MySQLDSN(cfg.Mysql)), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if tracing.IsEnabled(cfg.Sentry) {
		threshold := time.Duration(cfg.Sentry.Tracing.DBSlowThresholdMs) * time.Millisecond
		if err := db.Use(tracing.NewGormPlugin(threshold)); err != nil {
			return nil, errors.Wrap(err, "register gorm tracing")
		}
	}
	return NewGorm(db)
}
