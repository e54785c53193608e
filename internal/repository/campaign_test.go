package repository

import (
	"context"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// clock 每次调用前进一秒，保证 created 可排序
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newRepo(t *testing.T) (*CampaignRepository, *kvstore.Memory) {
	t.Helper()
	mem := kvstore.NewMemory(0)
	store := kvstore.New(mem, kvstore.WithLogger(logger.Discard()))
	ck := &clock{now: baseTime}
	repo := NewCampaignRepository(store,
		WithMode(func() apiclient.Mode { return apiclient.ModeLocal }),
		WithClock(ck.Now),
		WithLogger(logger.Discard()),
	)
	return repo, mem
}

func input(title, category string, target, raised float64) model.CampaignInput {
	return model.CampaignInput{
		Title:        title,
		Tagline:      title + " tagline",
		Category:     category,
		Description:  strings.Repeat("Long enough description for "+title+". ", 3),
		TargetAmount: target,
		Raised:       raised,
		Deadline:     "2026-06-01",
		Creator:      &model.Creator{Name: "Creator " + title, Email: strings.ToLower(title) + "@example.com"},
	}
}

func mustCreate(t *testing.T, r *CampaignRepository, in model.CampaignInput) *model.Campaign {
	t.Helper()
	c, err := r.Create(context.Background(), in)
	require.NoError(t, err)
	return c
}

func titles(list []model.Campaign) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Title
	}
	return out
}

func TestCreate_ThenGetByID(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	created := mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	assert.Equal(t, model.StatusPending, created.Status)

	got, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
}

func TestCreate_InvalidIsNotPersisted(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	in := input("Solar", "Technology", 1000, 0)
	in.Title = ""
	in.Description = "0123456789"
	_, err := r.Create(ctx, in)

	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 2)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "description")

	all, err := r.GetAll(ctx, Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetByID_Unknown(t *testing.T) {
	r, _ := newRepo(t)
	got, err := r.GetByID(context.Background(), "nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddContribution_Atomic(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	in := input("Solar", "Technology", 5000, 1000)
	in.Backers = 3
	c := mustCreate(t, r, in)

	updated, err := r.AddContribution(ctx, c.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, updated.Raised)
	assert.Equal(t, 4, updated.Backers)
	assert.True(t, updated.Updated.After(c.Updated))

	got, err := r.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, got.Raised)
	assert.Equal(t, 4, got.Backers)
}

func TestAddContribution_Errors(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	_, err := r.AddContribution(ctx, "missing", 100)
	assert.True(t, errs.IsNotFound(err))

	c := mustCreate(t, r, input("Solar", "Technology", 5000, 0))
	for _, amount := range []float64{0, -5} {
		_, err = r.AddContribution(ctx, c.ID, amount)
		ve, ok := errs.AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, ve.Fields, "amount")
	}
}

func TestAddContribution_ConcurrentNoLostUpdate(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	c := mustCreate(t, r, input("Solar", "Technology", 5000, 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.AddContribution(ctx, c.ID, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Raised)
	assert.Equal(t, 50, got.Backers)
}

func TestDelete_Idempotent(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, input("A", "Health", 100, 0))
	mustCreate(t, r, input("B", "Health", 100, 0))

	ok, err := r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	all, _ := r.GetAll(ctx, Filters{})
	assert.Equal(t, []string{"B"}, titles(all))
}

func TestUpdate(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	c := mustCreate(t, r, input("Solar", "Technology", 1000, 0))

	title := "Solar v2"
	updated, err := r.Update(ctx, c.ID, model.CampaignPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Solar v2", updated.Title)
	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, c.Created, updated.Created)
	assert.True(t, updated.Updated.After(c.Updated))

	_, err = r.Update(ctx, "missing", model.CampaignPatch{Title: &title})
	assert.True(t, errs.IsNotFound(err))

	short := "short"
	_, err = r.Update(ctx, c.ID, model.CampaignPatch{Description: &short})
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)

	got, _ := r.GetByID(ctx, c.ID)
	assert.Equal(t, "Solar v2", got.Title)
	assert.NotEqual(t, short, got.Description)
}

func TestApproveReject(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, input("A", "Health", 100, 0))
	b := mustCreate(t, r, input("B", "Health", 100, 0))

	approved, err := r.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	rejected, err := r.Reject(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)

	// 已审核的项目不能再改状态
	_, err = r.Reject(ctx, a.ID)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "status")

	public, err := r.GetAll(ctx, Filters{PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(public))
}

func TestGetAll_SortMostFunded(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("Thirty", "Technology", 1000, 300))
	mustCreate(t, r, input("Ninety", "Technology", 1000, 900))
	mustCreate(t, r, input("Sixty", "Technology", 1000, 600))

	for _, sortBy := range []string{"Most Funded", "MostFunded", "most_funded"} {
		all, err := r.GetAll(context.Background(), Filters{SortBy: sortBy})
		require.NoError(t, err)
		assert.Equal(t, []string{"Ninety", "Sixty", "Thirty"}, titles(all), sortBy)
	}
}

func TestGetAll_SortMostFundedByPercent(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("Small", "Technology", 100, 90))   // 90%
	mustCreate(t, r, input("Big", "Technology", 100000, 300)) // 0%
	mustCreate(t, r, input("Mid", "Technology", 1000, 600))   // 60%

	all, err := r.GetAll(context.Background(), Filters{SortBy: SortMostFunded})
	require.NoError(t, err)
	assert.Equal(t, []string{"Small", "Mid", "Big"}, titles(all))
}

func TestGetAll_CategoryFilterKeepsOrder(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("First", "Tech", 1000, 0))
	mustCreate(t, r, input("Second", "Health", 1000, 0))
	mustCreate(t, r, input("Third", "Tech", 1000, 0))

	all, err := r.GetAll(context.Background(), Filters{Category: "Tech"})
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Third"}, titles(all))

	for _, cat := range []string{"", "All", "All Categories"} {
		all, err = r.GetAll(context.Background(), Filters{Category: cat})
		require.NoError(t, err)
		assert.Len(t, all, 3, cat)
	}
}

func TestGetAll_Search(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	wind := input("Wind", "Environment", 1000, 0)
	wind.Creator.Name = "Meera"
	mustCreate(t, r, wind)

	all, err := r.GetAll(context.Background(), Filters{Search: "SOLAR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Solar"}, titles(all))

	all, err = r.GetAll(context.Background(), Filters{Search: "meera"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wind"}, titles(all))

	all, err = r.GetAll(context.Background(), Filters{Search: "description for wind"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Wind"}, titles(all))
}

func TestGetAll_OtherSorts(t *testing.T) {
	r, _ := newRepo(t)
	a := input("A", "Technology", 1000, 500) // 50%
	a.Deadline = "2026-09-01"
	a.Backers = 2
	b := input("B", "Technology", 100, 80) // 80%
	b.Deadline = "2026-04-01"
	b.Backers = 9
	c := input("C", "Technology", 1000, 100) // 10%
	c.Deadline = ""
	c.Backers = 5
	mustCreate(t, r, a)
	mustCreate(t, r, b)
	// C 没有截止日期不能通过校验，直接写入存储
	cc := model.NewCampaign(c, baseTime.Add(time.Hour))
	list := kvstore.Get(context.Background(), r.store, storagekeys.Campaigns, []model.Campaign{})
	require.True(t, r.store.Set(context.Background(), storagekeys.Campaigns, append(list, cc)))

	ctx := context.Background()
	cases := map[string][]string{
		SortNewest:      {"C", "B", "A"},
		SortEndingSoon:  {"B", "A", "C"},
		SortMostBackers: {"B", "C", "A"},
		SortTrending:    {"B", "A", "C"},
		"whatever":      {"B", "A", "C"},
		"":              {"A", "B", "C"},
	}
	for sortBy, want := range cases {
		all, err := r.GetAll(ctx, Filters{SortBy: sortBy})
		require.NoError(t, err)
		assert.Equal(t, want, titles(all), sortBy)
	}
}

func TestGetAll_StableTies(t *testing.T) {
	r, _ := newRepo(t)
	for _, title := range []string{"One", "Two", "Three"} {
		mustCreate(t, r, input(title, "Technology", 1000, 500))
	}
	all, err := r.GetAll(context.Background(), Filters{SortBy: SortTrending})
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, titles(all))
}

func TestGetAll_MostFundedTiesKeepInsertionOrder(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("Small", "Technology", 100, 50))
	mustCreate(t, r, input("Large", "Technology", 10000, 5000))
	mustCreate(t, r, input("Medium", "Technology", 1000, 500))

	all, err := r.GetAll(context.Background(), Filters{SortBy: SortMostFunded})
	require.NoError(t, err)
	assert.Equal(t, []string{"Small", "Large", "Medium"}, titles(all))
}

func TestGetByCreator(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	mustCreate(t, r, input("Wind", "Technology", 1000, 0))

	mine, err := r.GetByCreator(context.Background(), "SOLAR@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"Solar"}, titles(mine))

	none, err := r.GetByCreator(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStorageFailure_KeepsLastGoodState(t *testing.T) {
	r, mem := newRepo(t)
	ctx := context.Background()
	c := mustCreate(t, r, input("Solar", "Technology", 1000, 100))

	mem.SetUnavailable(true)
	_, err := r.AddContribution(ctx, c.ID, 50)
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
	_, err = r.Create(ctx, input("Wind", "Technology", 1000, 0))
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)

	// 读取在不可用期间降级为空列表
	all, err := r.GetAll(ctx, Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)

	mem.SetUnavailable(false)
	got, err := r.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Raised)
	assert.Equal(t, 0, got.Backers)
	all, _ = r.GetAll(ctx, Filters{})
	assert.Len(t, all, 1)
}

func TestQuotaExceeded_ReportsQuota(t *testing.T) {
	mem := kvstore.NewMemory(900)
	store := kvstore.New(mem, kvstore.WithLogger(logger.Discard()))
	r := NewCampaignRepository(store,
		WithMode(func() apiclient.Mode { return apiclient.ModeLocal }),
		WithLogger(logger.Discard()),
	)
	ctx := context.Background()

	first := mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	_, err := r.Create(ctx, input("Wind", "Technology", 1000, 0))
	assert.ErrorIs(t, err, errs.ErrQuotaExceeded)

	all, _ := r.GetAll(ctx, Filters{})
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)
}

func TestClear(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	require.NoError(t, r.Clear(ctx))
	all, err := r.GetAll(ctx, Filters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRemoteModeWithoutClientFallsBack(t *testing.T) {
	mem := kvstore.NewMemory(0)
	r := NewCampaignRepository(kvstore.New(mem, kvstore.WithLogger(logger.Discard())),
		WithMode(func() apiclient.Mode { return apiclient.ModeRemote }),
		WithLogger(logger.Discard()),
	)
	c := mustCreate(t, r, input("Solar", "Technology", 1000, 0))
	got, err := r.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestFilters_Query(t *testing.T) {
	q := Filters{Category: "Health", SortBy: SortNewest, PublicOnly: true}.Query()
	assert.Equal(t, map[string]string{"category": "Health", "sortBy": "Newest", "public": "true"}, q)
}
