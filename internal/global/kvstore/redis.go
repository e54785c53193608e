package kvstore

import (
	"context"
	"fundverse/internal/global/errs"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis 多实例共享的介质
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapRedisErr(err, "get "+key)
	}
	return v, true, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return mapRedisErr(err, "set "+key)
	}
	return nil
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return mapRedisErr(err, "remove "+key)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, mapRedisErr(err, "scan "+prefix)
	}
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// maxmemory 用尽时 redis 返回 OOM 错误
func mapRedisErr(err error, op string) error {
	if strings.HasPrefix(err.Error(), "OOM") {
		return errors.Wrapf(errs.ErrQuotaExceeded, "%s: %v", op, err)
	}
	return errors.Wrapf(errs.ErrStorageUnavailable, "%s: %v", op, err)
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
