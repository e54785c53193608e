// Package repository 实现项目与用户的数据访问
//
// CampaignRepository 在本地模式下直接读写 kvstore，在远程模式下通过 apiclient 调用服务端，
// 两条路径返回相同的结构和错误类型。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"fundverse/internal/global/apiclient"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const resourceCampaign = "campaign"

// 排序方式，比较时忽略大小写和空格
const (
	SortNewest      = "Newest"
	SortMostFunded  = "Most Funded"
	SortEndingSoon  = "Ending Soon"
	SortMostBackers = "Most Backers"
	SortTrending    = "Trending"
)

type Filters struct {
	Category   string // 精确匹配，空、All、All Categories 表示不过滤
	Search     string // 标题、描述、发起人姓名，不区分大小写
	SortBy     string // 为空时保持插入顺序，无法识别时按 Trending
	PublicOnly bool   // 只返回 approved/active
}

// Query 远程模式下的查询参数
func (f Filters) Query() map[string]string {
	q := make(map[string]string)
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		q["search"] = f.Search
	}
	if f.SortBy != "" {
		q["sortBy"] = f.SortBy
	}
	if f.PublicOnly {
		q["public"] = "true"
	}
	return q
}

type Option func(*options)

type options struct {
	remote *apiclient.Client
	mode   func() apiclient.Mode
	now    func() time.Time
	log    *slog.Logger
}

// WithRemote 远程模式使用的客户端
func WithRemote(c *apiclient.Client) Option {
	return func(o *options) { o.remote = c }
}

// WithMode 默认读取 apiclient 的进程级开关
func WithMode(f func() apiclient.Mode) Option {
	return func(o *options) { o.mode = f }
}

func WithClock(f func() time.Time) Option {
	return func(o *options) { o.now = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{
		mode: apiclient.CurrentMode,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New("Repository")
	}
	return o
}

type CampaignRepository struct {
	store *kvstore.Service
	opts  options

	// 本地写操作都是整表读改写，必须串行
	mu sync.Mutex
}

func NewCampaignRepository(store *kvstore.Service, opts ...Option) *CampaignRepository {
	return &CampaignRepository{store: store, opts: buildOptions(opts)}
}

func (r *CampaignRepository) remote() (*apiclient.Client, bool) {
	if r.opts.mode() != apiclient.ModeRemote {
		return nil, false
	}
	if r.opts.remote == nil {
		r.opts.log.Warn("远程模式未配置客户端，回退到本地存储")
		return nil, false
	}
	return r.opts.remote, true
}

// GetAll 按条件过滤并排序
func (r *CampaignRepository) GetAll(ctx context.Context, f Filters) ([]model.Campaign, error) {
	if c, ok := r.remote(); ok {
		out := []model.Campaign{}
		if err := c.Get(ctx, "/campaigns", f.Query(), &out); err != nil {
			return nil, mapRemoteErr(err, "")
		}
		return out, nil
	}
	return Query(r.load(ctx), f, r.opts.now()), nil
}

// GetByID 不存在时返回 (nil, nil)
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if c, ok := r.remote(); ok {
		var out *model.Campaign
		err := c.Get(ctx, campaignPath(id), nil, &out)
		if errs.IsNotFound(mapRemoteErr(err, id)) {
			return nil, nil
		}
		if err != nil {
			return nil, mapRemoteErr(err, id)
		}
		return out, nil
	}

	list := r.load(ctx)
	if i := indexOf(list, id); i >= 0 {
		return &list[i], nil
	}
	return nil, nil
}

// GetByCreator 发起人邮箱不区分大小写
func (r *CampaignRepository) GetByCreator(ctx context.Context, email string) ([]model.Campaign, error) {
	if c, ok := r.remote(); ok {
		out := []model.Campaign{}
		if err := c.Get(ctx, "/campaigns/user/"+url.PathEscape(email), nil, &out); err != nil {
			return nil, mapRemoteErr(err, "")
		}
		return out, nil
	}

	want := model.NormalizeEmail(email)
	out := []model.Campaign{}
	for _, c := range r.load(ctx) {
		if model.NormalizeEmail(c.Creator.Email) == want {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create 校验失败返回 *errs.ValidationError，记录不会写入
func (r *CampaignRepository) Create(ctx context.Context, in model.CampaignInput) (*model.Campaign, error) {
	c := model.NewCampaign(in, r.opts.now())
	if err := c.Validate().Err(); err != nil {
		return nil, err
	}

	if rc, ok := r.remote(); ok {
		var out model.Campaign
		if err := rc.Post(ctx, "/campaigns", in, &out); err != nil {
			return nil, mapRemoteErr(err, "")
		}
		return &out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return nil, err
	}

	list := r.load(ctx)
	for indexOf(list, c.ID) >= 0 {
		c.ID = model.NewID(c.Created)
	}
	list = append(list, c)
	if err := r.persist(ctx, list); err != nil {
		return nil, err
	}
	r.opts.log.Info("创建项目", "id", c.ID, "creator", c.Creator.Email)
	return &c, nil
}

// Update 合并 patch 后重新校验，状态只能按审核流程变化
func (r *CampaignRepository) Update(ctx context.Context, id string, patch model.CampaignPatch) (*model.Campaign, error) {
	if rc, ok := r.remote(); ok {
		var out model.Campaign
		if err := rc.Put(ctx, campaignPath(id), patch, &out); err != nil {
			return nil, mapRemoteErr(err, id)
		}
		return &out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return nil, err
	}

	list := r.load(ctx)
	i := indexOf(list, id)
	if i < 0 {
		return nil, errs.NotFound(resourceCampaign, id)
	}

	c := list[i]
	from := c.Status
	if err := c.ApplyPatch(patch, r.opts.now()); err != nil {
		return nil, err
	}
	if !model.CanTransition(from, c.Status) {
		return nil, errs.NewValidation(map[string]string{
			"status": fmt.Sprintf("Cannot change status from %s to %s", from, c.Status),
		})
	}
	if err := c.Validate().Err(); err != nil {
		return nil, err
	}

	list[i] = c
	if err := r.persist(ctx, list); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete 幂等，记录不存在也返回 true
func (r *CampaignRepository) Delete(ctx context.Context, id string) (bool, error) {
	if rc, ok := r.remote(); ok {
		err := rc.Delete(ctx, campaignPath(id), nil)
		if err != nil && !errs.IsNotFound(mapRemoteErr(err, id)) {
			return false, mapRemoteErr(err, id)
		}
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return false, err
	}

	list := r.load(ctx)
	i := indexOf(list, id)
	if i < 0 {
		return true, nil
	}
	list = append(list[:i], list[i+1:]...)
	if err := r.persist(ctx, list); err != nil {
		return false, err
	}
	r.opts.log.Info("删除项目", "id", id)
	return true, nil
}

// AddContribution raised 与 backers 在同一次写入中更新
func (r *CampaignRepository) AddContribution(ctx context.Context, id string, amount float64) (*model.Campaign, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errs.NewValidation(map[string]string{"amount": "Contribution amount must be greater than 0"})
	}

	if rc, ok := r.remote(); ok {
		var out model.Campaign
		body := map[string]float64{"amount": amount}
		if err := rc.Post(ctx, campaignPath(id)+"/contributions", body, &out); err != nil {
			return nil, mapRemoteErr(err, id)
		}
		return &out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return nil, err
	}

	list := r.load(ctx)
	i := indexOf(list, id)
	if i < 0 {
		return nil, errs.NotFound(resourceCampaign, id)
	}

	c := list[i]
	c.Raised += amount
	c.Backers++
	c.Updated = model.Now(r.opts.now())
	list[i] = c
	if err := r.persist(ctx, list); err != nil {
		return nil, err
	}
	r.opts.log.Info("收到捐款", "id", id, "amount", amount, "raised", c.Raised, "backers", c.Backers)
	return &c, nil
}

// Approve 审核通过，项目出现在公开列表
func (r *CampaignRepository) Approve(ctx context.Context, id string) (*model.Campaign, error) {
	return r.review(ctx, id, model.StatusApproved, "approve")
}

func (r *CampaignRepository) Reject(ctx context.Context, id string) (*model.Campaign, error) {
	return r.review(ctx, id, model.StatusRejected, "reject")
}

func (r *CampaignRepository) review(ctx context.Context, id string, to model.Status, action string) (*model.Campaign, error) {
	if rc, ok := r.remote(); ok {
		var out model.Campaign
		if err := rc.Post(ctx, campaignPath(id)+"/"+action, nil, &out); err != nil {
			return nil, mapRemoteErr(err, id)
		}
		return &out, nil
	}
	status := string(to)
	return r.Update(ctx, id, model.CampaignPatch{Status: &status})
}

// Clear 管理员清空所有项目
func (r *CampaignRepository) Clear(ctx context.Context) error {
	if rc, ok := r.remote(); ok {
		return mapRemoteErr(rc.Delete(ctx, "/campaigns", nil), "")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return err
	}
	if !r.store.Remove(ctx, storagekeys.Campaigns) || !r.store.Remove(ctx, storagekeys.UserCampaigns) {
		return storageErr(r.store, "clear campaigns")
	}
	r.opts.log.Warn("已清空全部项目")
	return nil
}

func (r *CampaignRepository) load(ctx context.Context) []model.Campaign {
	return kvstore.Get(ctx, r.store, storagekeys.Campaigns, []model.Campaign{})
}

// persist 写入失败时存储中仍是上一次的完整集合
func (r *CampaignRepository) persist(ctx context.Context, list []model.Campaign) error {
	if !r.store.Set(ctx, storagekeys.Campaigns, list) {
		return storageErr(r.store, "persist campaigns")
	}
	return nil
}

// Query 在内存中过滤和排序，服务端与本地模式共用
func Query(list []model.Campaign, f Filters, now time.Time) []model.Campaign {
	out := make([]model.Campaign, 0, len(list))
	category := strings.TrimSpace(f.Category)
	if strings.EqualFold(category, "All") || strings.EqualFold(category, "All Categories") {
		category = ""
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	for _, c := range list {
		if f.PublicOnly && !c.IsPublic() {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) &&
			!strings.Contains(strings.ToLower(c.Creator.Name), search) {
			continue
		}
		out = append(out, c)
	}

	if f.SortBy == "" {
		return out
	}

	var less func(a, b *model.Campaign) bool
	switch sortKey(f.SortBy) {
	case sortKey(SortNewest):
		less = func(a, b *model.Campaign) bool { return a.Created.After(b.Created) }
	case sortKey(SortMostFunded):
		less = func(a, b *model.Campaign) bool { return a.FundedPercent() > b.FundedPercent() }
	case sortKey(SortEndingSoon):
		less = func(a, b *model.Campaign) bool {
			// 没有截止日期的排在最后
			if a.Deadline.IsZero() || b.Deadline.IsZero() {
				return !a.Deadline.IsZero() && b.Deadline.IsZero()
			}
			return a.Deadline.Sub(now) < b.Deadline.Sub(now)
		}
	case sortKey(SortMostBackers):
		less = func(a, b *model.Campaign) bool { return a.Backers > b.Backers }
	default:
		less = func(a, b *model.Campaign) bool { return a.FundingRatio() > b.FundingRatio() }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func sortKey(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
}

func indexOf(list []model.Campaign, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func campaignPath(id string) string {
	return "/campaigns/" + url.PathEscape(id)
}

// writable 写操作前探测介质，避免把不可用误判为记录不存在
func writable(ctx context.Context, store *kvstore.Service) error {
	if !store.IsAvailable(ctx) {
		return storageErr(store, "storage probe")
	}
	return nil
}

// storageErr 根据 kvstore 最近一次错误区分容量不足和不可用
func storageErr(store *kvstore.Service, op string) error {
	if errors.Is(store.LastError(), errs.ErrQuotaExceeded) {
		return errors.Wrap(errs.ErrQuotaExceeded, op)
	}
	return errors.Wrap(errs.ErrStorageUnavailable, op)
}

// mapRemoteErr 把服务端状态码还原成本地模式的错误类型
func mapRemoteErr(err error, id string) error {
	if err == nil {
		return nil
	}
	he, ok := errs.AsHTTP(err)
	if !ok {
		return err
	}
	switch he.StatusCode {
	case http.StatusNotFound:
		return errs.NotFound(resourceCampaign, id)
	case http.StatusUnprocessableEntity:
		if fields := validationFields(he.Body); len(fields) > 0 {
			return errs.NewValidation(fields)
		}
	}
	return err
}

func validationFields(body []byte) map[string]string {
	env, ok := apiclient.DecodeEnvelope(body)
	if !ok {
		return nil
	}
	var ve errs.ValidationError
	if err := json.Unmarshal(env.Data, &ve); err != nil {
		return nil
	}
	return ve.Fields
}
