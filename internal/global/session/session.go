// Package session 保存当前登录用户，CLI 与远程客户端共用
//
// 登录信息持久化在 CurrentUser / AuthToken / UserRole 三个键中，
// 需要身份的组件显式持有 *Session，而不是读取全局状态。
package session

import (
	"context"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// Listener 登录状态变化时回调，登出时 user 为 nil
type Listener func(user *model.PublicUser)

type Option func(*Session)

// WithClient 登录态变化时同步 Authorization 头
func WithClient(c *apiclient.Client) Option {
	return func(s *Session) { s.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

type Session struct {
	store  *kvstore.Service
	client *apiclient.Client
	log    *slog.Logger

	mu    sync.RWMutex
	user  *model.PublicUser
	token string

	subMu sync.Mutex
	subs  map[int]Listener
	next  int
}

// New 创建后立即从存储中恢复上一次的登录状态
func New(ctx context.Context, store *kvstore.Service, opts ...Option) *Session {
	s := &Session{store: store, subs: make(map[int]Listener)}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New("Session")
	}
	s.Refresh(ctx)
	return s
}

// Current 返回当前用户的副本，未登录时为 nil
func (s *Session) Current() *model.PublicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsAuthenticated() bool {
	return s.Current() != nil
}

// HasRole 未登录时总是 false
func (s *Session) HasRole(roles ...model.Role) bool {
	u := s.Current()
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Login 写入用户与 token，任一键写入失败都会回滚到之前的登录态
func (s *Session) Login(ctx context.Context, user model.PublicUser, token string) error {
	s.mu.Lock()
	if !s.persist(ctx, user, token) {
		if s.user != nil {
			s.persist(ctx, *s.user, s.token)
		} else {
			s.removeKeys(ctx)
		}
		s.mu.Unlock()
		return errors.Wrap(errs.ErrStorageUnavailable, "persist session")
	}
	s.user = &user
	s.token = token
	s.mu.Unlock()

	if s.client != nil {
		s.client.SetAuthToken(token)
	}
	s.log.Info("用户已登录", "user_id", user.ID, "role", user.Role)
	s.notify(&user)
	return nil
}

// Logout 幂等
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	was := s.user != nil
	s.removeKeys(ctx)
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if s.client != nil {
		s.client.RemoveAuthToken()
	}
	if was {
		s.log.Info("用户已登出")
		s.notify(nil)
	}
}

// Refresh 重新读取存储，其他进程修改了登录态时使用
func (s *Session) Refresh(ctx context.Context) {
	var user model.PublicUser
	ok := s.store.Get(ctx, storagekeys.CurrentUser, &user)
	token := kvstore.Get(ctx, s.store, storagekeys.AuthToken, "")

	s.mu.Lock()
	before := s.user
	if ok && user.ID != "" {
		s.user = &user
		s.token = token
	} else {
		s.user = nil
		s.token = ""
	}
	after := s.user
	s.mu.Unlock()

	if s.client != nil {
		if after != nil && token != "" {
			s.client.SetAuthToken(token)
		} else {
			s.client.RemoveAuthToken()
		}
	}
	if changed(before, after) {
		s.notify(after)
	}
}

// Subscribe 返回取消订阅函数，可重复调用
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify(user *model.PublicUser) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		var cp *model.PublicUser
		if user != nil {
			u := *user
			cp = &u
		}
		fn(cp)
	}
}

func (s *Session) persist(ctx context.Context, user model.PublicUser, token string) bool {
	return s.store.Set(ctx, storagekeys.CurrentUser, user) &&
		s.store.Set(ctx, storagekeys.AuthToken, token) &&
		s.store.Set(ctx, storagekeys.UserRole, user.Role)
}

func (s *Session) removeKeys(ctx context.Context) {
	s.store.Remove(ctx, storagekeys.CurrentUser)
	s.store.Remove(ctx, storagekeys.AuthToken)
	s.store.Remove(ctx, storagekeys.UserRole)
}

func changed(a, b *model.PublicUser) bool {
	if a == nil || b == nil {
		return a != b
	}
	return a.ID != b.ID || a.Name != b.Name || a.Email != b.Email ||
		a.Role != b.Role || !a.CreatedAt.Equal(b.CreatedAt)
}
