package tracing

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisHook 实现 redis.Hook，追踪 kvstore 的 redis 命令
type RedisHook struct {
	// 设为 0 表示记录所有命令
	slowThreshold time.Duration
}

func NewRedisHook(slowThreshold time.Duration) *RedisHook {
	return &RedisHook{slowThreshold: slowThreshold}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmd)
		}

		start := time.Now()
		span := parent.StartChild("kvstore.redis")
		// 只记录命令名，键名可能包含用户邮箱
		span.Description = strings.ToUpper(cmd.Name())
		span.SetData("db.system", "redis")

		err := next(span.Context(), cmd)
		if err == redis.Nil {
			finish(span, start, h.slowThreshold, nil, "redis.error")
		} else {
			finish(span, start, h.slowThreshold, err, "redis.error")
		}
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		parent := sentry.SpanFromContext(ctx)
		if parent == nil {
			return next(ctx, cmds)
		}

		start := time.Now()
		span := parent.StartChild("kvstore.redis.pipeline")
		span.Description = pipelineDescription(cmds)
		span.SetData("db.system", "redis")
		span.SetData("redis.pipeline_length", len(cmds))

		err := next(span.Context(), cmds)
		finish(span, start, h.slowThreshold, err, "redis.error")
		return err
	}
}

func pipelineDescription(cmds []redis.Cmder) string {
	const maxShow = 3
	if len(cmds) == 0 {
		return "PIPELINE (empty)"
	}
	names := make([]string, 0, maxShow)
	for i, cmd := range cmds {
		if i >= maxShow {
			break
		}
		names = append(names, strings.ToUpper(cmd.Name()))
	}
	desc := "PIPELINE: " + strings.Join(names, ", ")
	if len(cmds) > maxShow {
		desc += "..."
	}
	return desc
}
