// Package tracing 为存储介质和远程调用提供 Sentry 性能追踪
// 只有当 context 中已有父 span（由 sentrygin 中间件创建）时才会产生子 span
package tracing

import (
	"context"
	"fundverse/config"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// IsEnabled 配置了 DSN 即视为启用
func IsEnabled(cfg config.Sentry) bool {
	return cfg.Dsn != ""
}

// ContextWithSpan 取出 gin 请求的 context，sentrygin 已将 transaction 放在其中
func ContextWithSpan(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// StartSpan 在 ctx 的当前 span 下创建子 span，没有父 span 时开启新的 transaction
// 调用方需要 defer span.Finish()
func StartSpan(ctx context.Context, operation, description string) *sentry.Span {
	if ctx == nil {
		ctx = context.Background()
	}
	return sentry.StartSpan(ctx, operation, sentry.WithDescription(description))
}

// finish 设置状态并结束 span，耗时低于阈值的 span 不上报
func finish(span *sentry.Span, start time.Time, threshold time.Duration, err error, errKey string) {
	if threshold > 0 && time.Since(start) < threshold {
		span.Sampled = sentry.SampledFalse
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData(errKey, err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
