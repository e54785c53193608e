package config

import (
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 FUNDVERSE_STORAGE_DRIVER
const EnvPrefix = "FUNDVERSE"

// DefaultStoragePath sqlite 驱动的默认文件名
const DefaultStoragePath = "fundverse.db"

var (
	cfg  *Config
	mu   sync.RWMutex
	path string
)

// SetPath 指定配置文件路径，需在 Init 之前调用
func SetPath(p string) {
	mu.Lock()
	defer mu.Unlock()
	path = p
}

// Init 读取配置文件并用环境变量覆盖，失败时 panic
func Init() {
	mu.RLock()
	p := path
	mu.RUnlock()

	c, err := Load(p)
	if err != nil {
		panic(err)
	}
	Set(c)
}

// Get 返回全局配置，未初始化时返回默认配置
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c != nil {
		return c
	}

	mu.Lock()
	defer mu.Unlock()
	if cfg == nil {
		d := Default()
		cfg = &d
	}
	return cfg
}

// Set 替换全局配置，测试和命令行使用
func Set(c *Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
}

// Default 返回不依赖任何外部文件的默认配置
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load 读取 config.yaml（可选）再叠加环境变量
// 找不到配置文件不算错误，格式错误才返回 error
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/fundverse")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || file != "" {
			return nil, errors.Wrap(err, "读取配置文件失败")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "解析配置失败")
	}

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, errors.Wrap(err, "读取环境变量失败")
	}

	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	c.API.Mode = strings.ToLower(c.API.Mode)
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "3000")
	v.SetDefault("prefix", "api")
	v.SetDefault("mode", string(ModeDebug))

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", DefaultStoragePath)
	v.SetDefault("storage.quota_bytes", 5*1024*1024)

	v.SetDefault("api.mode", "local")
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.retry_count", 2)

	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", "3306")
	v.SetDefault("mysql.db_name", "fundverse")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")

	v.SetDefault("jwt.access_secret", "fundverse-dev-secret")
	v.SetDefault("jwt.access_expire", 7*24*3600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "logs/fundverse.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.prefix", "campaigns")

	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.email", "admin@fundverse.com")
}
