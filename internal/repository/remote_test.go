package repository_test

import (
	"context"
	"fundverse/cmd/server"
	"fundverse/config"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/database"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"fundverse/test"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRemote 启动完整服务端，返回远程模式的仓库和服务端本地仓库
func newRemote(t *testing.T, role string) (*repository.CampaignRepository, *repository.CampaignRepository) {
	t.Helper()
	c := config.Default()
	c.JWT.AccessSecret = "remote-test"
	config.Set(&c)

	serverStore := kvstore.New(kvstore.NewMemory(0), kvstore.WithLogger(logger.Discard()))
	database.Use(serverStore, repository.WithLogger(logger.Discard()))
	server.InitModules()
	srv := httptest.NewServer(server.NewEngine())
	t.Cleanup(srv.Close)

	client := apiclient.New(apiclient.Options{BaseURL: srv.URL + "/api"})
	client.SetAuthToken(test.Token("u-1", "creator@example.com", role))

	clientStore := kvstore.New(kvstore.NewMemory(0), kvstore.WithLogger(logger.Discard()))
	remote := repository.NewCampaignRepository(clientStore,
		repository.WithRemote(client),
		repository.WithMode(func() apiclient.Mode { return apiclient.ModeRemote }),
		repository.WithLogger(logger.Discard()),
	)
	return remote, database.Campaigns
}

func input(title string) model.CampaignInput {
	return model.CampaignInput{
		Title:        title,
		Tagline:      "Tagline",
		Category:     "Technology",
		Description:  strings.Repeat("Remote parity description text. ", 3),
		TargetAmount: 1000,
		Deadline:     "2099-06-01",
		Creator:      &model.Creator{Name: "Creator", Email: "creator@example.com"},
	}
}

func TestRemote_CreateIsVisibleOnServer(t *testing.T) {
	remote, local := newRemote(t, "admin")
	ctx := context.Background()

	created, err := remote.Create(ctx, input("Remote"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.ID, model.IDPrefix))

	stored, err := local.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, created.Title, stored.Title)
	assert.Equal(t, created.Status, stored.Status)
	assert.True(t, created.Deadline.Equal(stored.Deadline))

	got, err := remote.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	mine, err := remote.GetByCreator(ctx, "CREATOR@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRemote_MissingRecordMatchesLocal(t *testing.T) {
	remote, local := newRemote(t, "admin")
	ctx := context.Background()

	for _, r := range []*repository.CampaignRepository{remote, local} {
		got, err := r.GetByID(ctx, "campaign_missing")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = r.Update(ctx, "campaign_missing", model.CampaignPatch{})
		assert.True(t, errs.IsNotFound(err), "%v", err)

		_, err = r.AddContribution(ctx, "campaign_missing", 10)
		assert.True(t, errs.IsNotFound(err), "%v", err)

		ok, err := r.Delete(ctx, "campaign_missing")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRemote_ValidationFieldsSurvive(t *testing.T) {
	remote, _ := newRemote(t, "admin")
	ctx := context.Background()

	created, err := remote.Create(ctx, input("Remote"))
	require.NoError(t, err)

	negative := -5.0
	_, err = remote.Update(ctx, created.ID, model.CampaignPatch{TargetAmount: &negative})
	ve, ok := errs.AsValidation(err)
	require.True(t, ok, "%v", err)
	assert.Contains(t, ve.Fields, "targetAmount")
}

func TestRemote_ContributionAndReview(t *testing.T) {
	remote, local := newRemote(t, "admin")
	ctx := context.Background()

	created, err := remote.Create(ctx, input("Remote"))
	require.NoError(t, err)

	approved, err := remote.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	funded, err := remote.AddContribution(ctx, created.ID, 125)
	require.NoError(t, err)
	assert.Equal(t, 125.0, funded.Raised)
	assert.Equal(t, 1, funded.Backers)

	public, err := remote.GetAll(ctx, repository.Filters{PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, public, 1)

	require.NoError(t, remote.Clear(ctx))
	all, err := local.GetAll(ctx, repository.Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRemote_ForbiddenIsNotMappedToLocalError(t *testing.T) {
	remote, _ := newRemote(t, "student")
	ctx := context.Background()

	created, err := remote.Create(ctx, input("Mine"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)

	_, err = remote.Approve(ctx, created.ID)
	he, ok := errs.AsHTTP(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, 403, he.StatusCode)
}
