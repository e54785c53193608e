// Package sentry 只在配置了 DSN 时生效，未配置时所有函数都是空操作
package sentry

import (
	"fmt"
	"fundverse/config"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Release 上报时使用的版本号
const Release = "fundverse@1.0.0"

const (
	// PayloadKey 鉴权中间件写入 gin.Context 的登录信息键
	PayloadKey = "payload"
	// ResponseKey 失败响应体，随事件一起上报
	ResponseKey = "response_body"
)

// 上报前从请求中移除的头
var sensitiveHeaders = []string{"Authorization", "Cookie", "X-Api-Key"}

// Coded 带错误码的错误，只有 5xx 需要上报
type Coded interface {
	error
	GetCode() int32
}

func Enabled() bool {
	return config.Get().Sentry.Dsn != ""
}

func Init() error {
	cfg := config.Get()
	if cfg.Sentry.Dsn == "" {
		return nil
	}
	if err := sentry.Init(clientOptions(cfg)); err != nil {
		return errors.Wrap(err, "sentry initialization failed")
	}
	return nil
}

// clientOptions 错误事件全部上报，性能追踪按 sample_rate 采样
func clientOptions(cfg *config.Config) sentry.ClientOptions {
	rate := cfg.Sentry.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1.0
	}
	env := cfg.Sentry.Environment
	if env == "" {
		env = string(cfg.Mode)
	}
	return sentry.ClientOptions{
		Dsn:              cfg.Sentry.Dsn,
		Environment:      env,
		Release:          Release,
		SampleRate:       1.0,
		EnableTracing:    true,
		TracesSampleRate: rate,
		EnableLogs:       true,
		Tags:             map[string]string{"storage_driver": cfg.Storage.Driver, "api_mode": cfg.API.Mode},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrub(event)
		},
	}
}

// scrub 去掉凭据；带密码的请求体整体丢弃
func scrub(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for _, h := range sensitiveHeaders {
		delete(event.Request.Headers, h)
	}
	if event.Request.Cookies != "" {
		event.Request.Cookies = ""
	}
	if strings.Contains(strings.ToLower(event.Request.Data), "password") {
		event.Request.Data = "[filtered]"
	}
	return event
}

func Middleware() gin.HandlerFunc {
	if !Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true, // 交给后面的 Recovery 写 500 响应
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureException 只上报服务端错误，附带路由、登录用户和响应体
func CaptureException(c *gin.Context, err error) {
	if !Enabled() || !shouldReport(err) {
		return
	}

	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetTag("route", c.FullPath())
		scope.SetTag("method", c.Request.Method)
		if code, ok := err.(Coded); ok {
			scope.SetTag("code", fmt.Sprint(code.GetCode()))
		}
		if payload, ok := c.Get(PayloadKey); ok {
			if p, ok := payload.(interface{ SentryUser() sentry.User }); ok {
				u := p.SentryUser()
				u.IPAddress = c.ClientIP()
				scope.SetUser(u)
			}
		}
		if body, ok := c.Get(ResponseKey); ok {
			scope.SetContext("response", sentry.Context{"body": body})
		}
		hub.CaptureException(err)
	})
}

// shouldReport 非 Coded 的错误一律上报
func shouldReport(err error) bool {
	if err == nil {
		return false
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.GetCode() >= 500 && coded.GetCode() < 600
	}
	return true
}

// Flush 退出前调用，等待缓冲区中的事件发送完
func Flush(timeout time.Duration) {
	if Enabled() {
		sentry.Flush(timeout)
	}
}
