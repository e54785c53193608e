package kvstore

import (
	"context"
	"fundverse/internal/global/errs"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Memory 进程内存储，可设置容量上限；也用于测试中模拟存储故障
type Memory struct {
	mu          sync.RWMutex
	items       map[string]string
	used        int64
	quota       int64
	unavailable bool
}

// NewMemory quota 为键和值的总字节数上限，<=0 表示不限制
func NewMemory(quota int64) *Memory {
	return &Memory{
		items: make(map[string]string),
		quota: quota,
	}
}

// SetUnavailable 切换为不可用状态，之后所有操作返回 ErrStorageUnavailable
func (m *Memory) SetUnavailable(v bool) {
	m.mu.Lock()
	m.unavailable = v
	m.mu.Unlock()
}

// Used 当前占用字节数
func (m *Memory) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return "", false, errs.ErrStorageUnavailable
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return errs.ErrStorageUnavailable
	}

	used := m.used + int64(len(key)+len(value))
	if old, ok := m.items[key]; ok {
		used -= int64(len(key) + len(old))
	}
	if m.quota > 0 && used > m.quota {
		return errors.Wrapf(errs.ErrQuotaExceeded, "set %s: %d/%d bytes", key, used, m.quota)
	}

	m.items[key] = value
	m.used = used
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return errs.ErrStorageUnavailable
	}
	if old, ok := m.items[key]; ok {
		m.used -= int64(len(key) + len(old))
		delete(m.items, key)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return nil, errs.ErrStorageUnavailable
	}
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error {
	return nil
}
