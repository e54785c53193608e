package config

import "time"

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Config struct {
	Host    string  `split_words:"true" mapstructure:"host"`
	Port    string  `split_words:"true" mapstructure:"port"`
	Prefix  string  `split_words:"true" mapstructure:"prefix"`
	Mode    Mode    `split_words:"true" mapstructure:"mode"`
	Storage Storage `mapstructure:"storage"`
	API     API     `mapstructure:"api"`
	Mysql   Mysql   `mapstructure:"mysql"`
	Redis   Redis   `mapstructure:"redis"`
	JWT     JWT     `mapstructure:"jwt"`
	Log     Log     `mapstructure:"log"`
	Sentry  Sentry  `mapstructure:"sentry"`
	S3      S3      `mapstructure:"s3"`
	Admin   Admin   `mapstructure:"admin"`
}

// Storage 键值存储介质配置
type Storage struct {
	Driver     string `split_words:"true" mapstructure:"driver"`      // memory, sqlite, redis, mysql
	Path       string `split_words:"true" mapstructure:"path"`        // sqlite 文件路径
	QuotaBytes int64  `split_words:"true" mapstructure:"quota_bytes"` // memory 驱动的容量上限，0 表示不限
}

// API 远程模式配置
type API struct {
	Mode       string        `split_words:"true" mapstructure:"mode"` // local, remote
	BaseURL    string        `split_words:"true" mapstructure:"base_url"`
	Timeout    time.Duration `split_words:"true" mapstructure:"timeout"`
	RetryCount int           `split_words:"true" mapstructure:"retry_count"`
}

type Mysql struct {
	Host     string `split_words:"true" mapstructure:"host"`
	Port     string `split_words:"true" mapstructure:"port"`
	Username string `split_words:"true" mapstructure:"username"`
	Password string `split_words:"true" mapstructure:"password"`
	DBName   string `split_words:"true" mapstructure:"db_name"`
}

type Redis struct {
	Host     string `split_words:"true" mapstructure:"host"`
	Port     string `split_words:"true" mapstructure:"port"`
	Password string `split_words:"true" mapstructure:"password"`
	DB       int    `split_words:"true" mapstructure:"db"`
}

type JWT struct {
	AccessSecret string `split_words:"true" mapstructure:"access_secret"`
	AccessExpire int64  `split_words:"true" mapstructure:"access_expire"` // 秒
}

type Log struct {
	FilePath   string `split_words:"true" mapstructure:"file_path"`   // 日志文件路径
	Level      string `split_words:"true" mapstructure:"level"`       // 日志级别：debug, info, warn, error
	MaxSize    int    `split_words:"true" mapstructure:"max_size"`    // 日志文件最大大小（MB）
	MaxBackups int    `split_words:"true" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `split_words:"true" mapstructure:"max_age"`     // 日志文件保留天数
	Compress   bool   `split_words:"true" mapstructure:"compress"`    // 是否压缩旧日志文件
}

type Sentry struct {
	Dsn         string  `split_words:"true" mapstructure:"dsn"`
	Environment string  `split_words:"true" mapstructure:"environment"`
	SampleRate  float64 `split_words:"true" mapstructure:"sample_rate"`
	Tracing     Tracing `mapstructure:"tracing"`
}

type Tracing struct {
	TraceHTTPCalls       bool `split_words:"true" mapstructure:"trace_http_calls"`
	DBSlowThresholdMs    int  `split_words:"true" mapstructure:"db_slow_threshold_ms"`
	RedisSlowThresholdMs int  `split_words:"true" mapstructure:"redis_slow_threshold_ms"`
}

type S3 struct {
	Endpoint        string `split_words:"true" mapstructure:"endpoint"`
	BaseURL         string `split_words:"true" mapstructure:"base_url"`
	Bucket          string `split_words:"true" mapstructure:"bucket"`
	Region          string `split_words:"true" mapstructure:"region"`
	AccessKey       string `split_words:"true" mapstructure:"access_key"`
	SecretAccessKey string `split_words:"true" mapstructure:"secret_key"`
	Prefix          string `split_words:"true" mapstructure:"prefix"`
	UsePathStyle    bool   `split_words:"true" mapstructure:"path_style"`
}

// Admin 首次启动时写入的管理员账号
type Admin struct {
	Name     string `split_words:"true" mapstructure:"name"`
	Email    string `split_words:"true" mapstructure:"email"`
	Password string `split_words:"true" mapstructure:"password"`
}
