package session

import (
	"context"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asha = model.PublicUser{
	ID:        "u1",
	Name:      "Asha",
	Email:     "asha@example.com",
	Role:      model.RoleCompany,
	CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
}

func newStore() (*kvstore.Service, *kvstore.Memory) {
	mem := kvstore.NewMemory(0)
	return kvstore.New(mem, kvstore.WithLogger(logger.Discard())), mem
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	client := apiclient.New(apiclient.Options{})
	s := New(ctx, store, WithClient(client), WithLogger(logger.Discard()))

	assert.Nil(t, s.Current())
	assert.False(t, s.HasRole(model.RoleCompany))

	require.NoError(t, s.Login(ctx, asha, "tok"))
	assert.Equal(t, asha, *s.Current())
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, "tok", client.AuthToken())
	assert.True(t, s.HasRole(model.RoleStudent, model.RoleCompany))
	assert.Equal(t, "company", kvstore.Get(ctx, store, storagekeys.UserRole, ""))

	s.Logout(ctx)
	assert.Nil(t, s.Current())
	assert.Empty(t, client.AuthToken())
	assert.Empty(t, store.GetAll(ctx, storagekeys.Prefix))
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	require.NoError(t, New(ctx, store, WithLogger(logger.Discard())).Login(ctx, asha, "tok"))

	client := apiclient.New(apiclient.Options{})
	s := New(ctx, store, WithClient(client), WithLogger(logger.Discard()))
	require.NotNil(t, s.Current())
	assert.Equal(t, "u1", s.Current().ID)
	assert.Equal(t, "tok", client.AuthToken())
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := New(ctx, store, WithLogger(logger.Discard()))

	var seen []*model.PublicUser
	unsubscribe := s.Subscribe(func(u *model.PublicUser) { seen = append(seen, u) })

	require.NoError(t, s.Login(ctx, asha, "tok"))
	s.Logout(ctx)
	s.Logout(ctx)
	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].ID)
	assert.Nil(t, seen[1])

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Login(ctx, asha, "tok"))
	assert.Len(t, seen, 2)
}

func TestRefresh_PicksUpExternalChange(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := New(ctx, store, WithLogger(logger.Discard()))

	calls := 0
	s.Subscribe(func(*model.PublicUser) { calls++ })

	other := New(ctx, store, WithLogger(logger.Discard()))
	require.NoError(t, other.Login(ctx, asha, "tok"))
	assert.Nil(t, s.Current())

	s.Refresh(ctx)
	require.NotNil(t, s.Current())
	assert.Equal(t, 1, calls)

	s.Refresh(ctx)
	assert.Equal(t, 1, calls)
}

func TestLogin_StorageFailure(t *testing.T) {
	ctx := context.Background()
	store, mem := newStore()
	s := New(ctx, store, WithLogger(logger.Discard()))

	mem.SetUnavailable(true)
	assert.Error(t, s.Login(ctx, asha, "tok"))
	assert.Nil(t, s.Current())

	mem.SetUnavailable(false)
	s.Refresh(ctx)
	assert.Nil(t, s.Current())
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory(512)
	store := kvstore.New(mem, kvstore.WithLogger(logger.Discard()))
	client := apiclient.New(apiclient.Options{})
	s := New(ctx, store, WithClient(client), WithLogger(logger.Discard()))
	require.NoError(t, s.Login(ctx, asha, "tok"))

	big := asha
	big.ID = "u2"
	big.Name = strings.Repeat("x", 1024)
	assert.Error(t, s.Login(ctx, big, "tok-2"))

	assert.Equal(t, asha, *s.Current())
	assert.Equal(t, "tok", client.AuthToken())

	// 存储与内存一致，重新读取仍是之前的用户
	s.Refresh(ctx)
	require.NotNil(t, s.Current())
	assert.Equal(t, asha.ID, s.Current().ID)
	assert.Equal(t, "tok", s.Token())
}
