package repository

import (
	"context"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/storagekeys"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResetFixture(t *testing.T) (*kvstore.Service, *kvstore.Memory, *CampaignRepository, *UserRepository) {
	t.Helper()
	mem := kvstore.NewMemory(0)
	store := kvstore.New(mem, kvstore.WithLogger(logger.Discard()))
	ck := &clock{now: baseTime}
	campaigns := NewCampaignRepository(store,
		WithMode(func() apiclient.Mode { return apiclient.ModeLocal }),
		WithClock(ck.Now),
		WithLogger(logger.Discard()),
	)
	users := NewUserRepository(store, WithClock(ck.Now), WithLogger(logger.Discard()))
	return store, mem, campaigns, users
}

func TestReset(t *testing.T) {
	store, _, campaigns, users := newResetFixture(t)
	ctx := context.Background()

	admin, err := users.EnsureAdmin(ctx, "Admin", "admin@fundverse.io", "changeme")
	require.NoError(t, err)
	_, err = users.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	mustCreate(t, campaigns, input("Solar", "Technology", 1000, 0))
	require.True(t, store.Set(ctx, storagekeys.Payments, []string{"p-1"}))
	require.True(t, store.Set(ctx, storagekeys.SidebarState, true))
	require.True(t, store.Set(ctx, storagekeys.AuthToken, "tok"))

	res, err := Reset(ctx, store, campaigns, users, ResetOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.UsersRemoved)

	all := store.GetAll(ctx, storagekeys.Prefix)
	assert.Len(t, all, 2)
	assert.Contains(t, all, storagekeys.Users.String())
	assert.Contains(t, all, storagekeys.AuthToken.String())

	res, err = Reset(ctx, store, campaigns, users, ResetOptions{Users: true, KeepUsers: []string{admin.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.UsersRemoved)
	list, _ := users.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, admin.ID, list[0].ID)
}

func TestReset_StorageUnavailable(t *testing.T) {
	store, mem, campaigns, users := newResetFixture(t)
	ctx := context.Background()
	mustCreate(t, campaigns, input("Solar", "Technology", 1000, 0))

	mem.SetUnavailable(true)
	_, err := Reset(ctx, store, campaigns, users, ResetOptions{Users: true})
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))

	mem.SetUnavailable(false)
	all, err := campaigns.GetAll(ctx, Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
