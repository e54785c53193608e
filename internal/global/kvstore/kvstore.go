// Package kvstore 提供带容错的键值存储适配器
//
// Service 的所有操作都不会向调用方抛出错误：读取失败返回默认值，写入失败返回 false，
// 错误通过日志和 LastError 暴露。上层仓库因此不需要为日常的存储故障做错误处理。
//
// 值以 JSON 文本保存，底层介质由 Backend 决定（memory、sqlite、redis、mysql）。
package kvstore

import (
	"context"
	"encoding/json"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/storagekeys"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const probeKey = "__fundverse_probe__"

// Backend 底层存储介质，只处理字符串值
// RemoveItem 删除不存在的键不应返回错误
type Backend interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Evictor 容量不足时调用的清理钩子
type Evictor func(ctx context.Context, s *Service)

type Service struct {
	backend Backend
	log     *slog.Logger
	evict   Evictor

	mu      sync.Mutex
	lastErr error
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithEvictor 替换默认的配额清理策略，传 nil 表示不清理
func WithEvictor(e Evictor) Option {
	return func(s *Service) { s.evict = e }
}

func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		log:     slog.Default(),
		evict:   EvictPreferences,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAvailable 通过一次写入+删除探测介质是否可用
func (s *Service) IsAvailable(ctx context.Context) bool {
	if err := s.backend.SetItem(ctx, probeKey, "1"); err != nil {
		s.fault(err)
		return false
	}
	if err := s.backend.RemoveItem(ctx, probeKey); err != nil {
		s.fault(err)
		return false
	}
	return true
}

// Get 读取 key 并解码到 out（必须是非 nil 指针）
// 键不存在或解码失败时 out 保持原值（即调用方预置的默认值），返回 false
func (s *Service) Get(ctx context.Context, key storagekeys.Key, out any) bool {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		s.log.Error("读取存储失败：目标必须是非空指针", "key", key)
		return false
	}

	raw, ok := s.raw(ctx, key)
	if !ok {
		return false
	}

	target := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(raw), target.Interface()); err != nil {
		s.log.Error("解析存储数据失败", "key", key, "error", err)
		s.fault(errors.Wrapf(err, "decode %s", key))
		return false
	}
	rv.Elem().Set(target.Elem())
	return true
}

// Get 泛型版本，失败时返回 def
func Get[T any](ctx context.Context, s *Service, key storagekeys.Key, def T) T {
	v := def
	if !s.Get(ctx, key, &v) {
		return def
	}
	return v
}

// Set 编码 value 为 JSON 并写入，失败返回 false
// 容量不足时触发清理钩子，但本次写入仍然视为失败，已有数据保持不变
func (s *Service) Set(ctx context.Context, key storagekeys.Key, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error("序列化存储数据失败", "key", key, "error", err)
		s.fault(errors.Wrapf(err, "encode %s", key))
		return false
	}

	if err := s.backend.SetItem(ctx, key.String(), string(data)); err != nil {
		s.log.Error("写入存储失败", "key", key, "error", err)
		s.fault(err)
		if errors.Is(err, errs.ErrQuotaExceeded) {
			s.log.Warn("存储容量不足，开始清理可丢弃数据", "key", key, "size", len(data))
			if s.evict != nil {
				s.evict(ctx, s)
			}
		}
		return false
	}
	return true
}

// Remove 删除 key，键不存在也返回 true
func (s *Service) Remove(ctx context.Context, key storagekeys.Key) bool {
	if err := s.backend.RemoveItem(ctx, key.String()); err != nil {
		s.log.Error("删除存储键失败", "key", key, "error", err)
		s.fault(err)
		return false
	}
	return true
}

// ClearNamespace 删除所有以 prefix 开头的键，用于管理员清空数据
// keep 中的键不删除
func (s *Service) ClearNamespace(ctx context.Context, prefix string, keep ...storagekeys.Key) bool {
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		s.log.Error("列出存储键失败", "prefix", prefix, "error", err)
		s.fault(err)
		return false
	}

	ok := true
	removed := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) || slices.Contains(keep, storagekeys.Key(k)) {
			continue
		}
		removed++
		if err := s.backend.RemoveItem(ctx, k); err != nil {
			s.log.Error("删除存储键失败", "key", k, "error", err)
			s.fault(err)
			ok = false
		}
	}
	if ok {
		s.log.Info("已清空命名空间", "prefix", prefix, "count", removed)
	}
	return ok
}

// GetAll 返回所有以 prefix 开头的键及其原始 JSON
// 无法解析的值会被跳过
func (s *Service) GetAll(ctx context.Context, prefix string) map[string]json.RawMessage {
	result := make(map[string]json.RawMessage)
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		s.log.Error("列出存储键失败", "prefix", prefix, "error", err)
		s.fault(err)
		return result
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		raw, ok := s.raw(ctx, storagekeys.Key(k))
		if !ok {
			continue
		}
		if !json.Valid([]byte(raw)) {
			s.log.Error("存储数据不是合法 JSON", "key", k)
			continue
		}
		result[k] = json.RawMessage(raw)
	}
	return result
}

// LastError 返回最近一次被吸收的错误，没有则为 nil
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Service) Close() error {
	return s.backend.Close()
}

func (s *Service) raw(ctx context.Context, key storagekeys.Key) (string, bool) {
	raw, ok, err := s.backend.GetItem(ctx, key.String())
	if err != nil {
		s.log.Error("读取存储失败", "key", key, "error", err)
		s.fault(err)
		return "", false
	}
	return raw, ok
}

func (s *Service) fault(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// EvictPreferences 默认清理策略：删除注册表中标记为可丢弃的键（界面偏好、支付历史）
// 用户与项目数据永远不会被清理
func EvictPreferences(ctx context.Context, s *Service) {
	for _, k := range storagekeys.Evictable() {
		s.Remove(ctx, k)
	}
}
