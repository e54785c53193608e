package campaign

import (
	"context"
	"fundverse/internal/global/database"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func views(list []model.Campaign) []model.CampaignView {
	now := time.Now()
	out := make([]model.CampaignView, len(list))
	for i, c := range list {
		out[i] = c.View(now)
	}
	return out
}

func isAdmin(p *jwt.Claims) bool {
	return p != nil && p.Role == string(model.RoleAdmin)
}

// owns 管理员可以操作任何项目，其他人只能操作自己发起的
func owns(p *jwt.Claims, c *model.Campaign) bool {
	return isAdmin(p) || (p != nil && model.NormalizeEmail(p.Email) == model.NormalizeEmail(c.Creator.Email))
}

// visible 审核通过的项目所有人可见，其余只有发起人和管理员可见
func visible(p *jwt.Claims, c *model.Campaign) bool {
	return c.IsPublic() || owns(p, c)
}

func filterVisible(p *jwt.Claims, list []model.Campaign) []model.Campaign {
	if isAdmin(p) {
		return list
	}
	out := make([]model.Campaign, 0, len(list))
	for i := range list {
		if visible(p, &list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}

// List GET /campaigns?category=&search=&sortBy=&public=true
// 未登录时只返回公开项目，登录后额外包含自己发起的
func List(c *gin.Context) {
	payload, _ := jwt.GetUserPayload(c)
	public, _ := strconv.ParseBool(c.Query("public"))
	list, err := database.Campaigns.GetAll(c.Request.Context(), repository.Filters{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		PublicOnly: public || payload == nil,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, views(filterVisible(payload, list)))
}

func Get(c *gin.Context) {
	id := c.Param("id")
	campaign, err := database.Campaigns.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	payload, _ := jwt.GetUserPayload(c)
	// 未公开的项目对其他人表现为不存在
	if campaign == nil || !visible(payload, campaign) {
		response.Fail(c, errs.NotFound("campaign", id))
		return
	}
	response.Success(c, campaign.View(time.Now()))
}

func ListByCreator(c *gin.Context) {
	list, err := database.Campaigns.GetByCreator(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	payload, _ := jwt.GetUserPayload(c)
	response.Success(c, views(filterVisible(payload, list)))
}

// Create 非管理员创建的项目一律从 pending、零金额开始
func Create(c *gin.Context) {
	var in model.CampaignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	payload, _ := jwt.GetUserPayload(c)
	if !isAdmin(payload) {
		in.Status = ""
		in.Raised = 0
		in.Backers = 0
		if in.Creator == nil && in.Email == "" {
			in.Creator = &model.Creator{Email: payload.Email}
		}
	}

	campaign, err := database.Campaigns.Create(c.Request.Context(), in)
	if err != nil {
		if _, ok := errs.AsValidation(err); !ok {
			log.Error("创建项目失败", "error", err)
		}
		response.Fail(c, err)
		return
	}
	log.Info("项目已创建", "id", campaign.ID, "user_id", payload.UserID)
	response.Success(c, campaign.View(time.Now()))
}

// Update 发起人不能修改审核状态和筹款数据
func Update(c *gin.Context) {
	id := c.Param("id")
	var patch model.CampaignPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	payload, _ := jwt.GetUserPayload(c)
	if !isAdmin(payload) {
		existing, ok := load(c, id)
		if !ok {
			return
		}
		if !owns(payload, existing) {
			response.Fail(c, response.ErrForbidden)
			return
		}
		if patch.Status != nil || patch.Raised != nil || patch.Backers != nil {
			response.Fail(c, response.ErrForbidden.WithTips("status, raised and backers are managed by the platform"))
			return
		}
	}

	campaign, err := database.Campaigns.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, campaign.View(time.Now()))
}

// Delete 幂等，不存在的 id 也返回成功
func Delete(c *gin.Context) {
	id := c.Param("id")
	payload, _ := jwt.GetUserPayload(c)

	existing, err := database.Campaigns.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if existing != nil && !owns(payload, existing) {
		response.Fail(c, response.ErrForbidden)
		return
	}

	deleted, err := database.Campaigns.Delete(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}

type contributionReq struct {
	Amount float64 `json:"amount"`
}

// Contribute 模拟支付成功后的记账，不涉及真实支付
func Contribute(c *gin.Context) {
	var req contributionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	campaign, err := database.Campaigns.AddContribution(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, campaign.View(time.Now()))
}

func Approve(c *gin.Context) {
	review(c, database.Campaigns.Approve)
}

func Reject(c *gin.Context) {
	review(c, database.Campaigns.Reject)
}

func review(c *gin.Context, fn func(ctx context.Context, id string) (*model.Campaign, error)) {
	id := c.Param("id")
	campaign, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	payload, _ := jwt.GetUserPayload(c)
	log.Info("项目审核", "id", id, "status", campaign.Status, "admin", payload.UserID)
	response.Success(c, campaign.View(time.Now()))
}

func Clear(c *gin.Context) {
	if err := database.Campaigns.Clear(c.Request.Context()); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// load 不存在时直接写 404 响应
func load(c *gin.Context, id string) (*model.Campaign, bool) {
	campaign, err := database.Campaigns.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return nil, false
	}
	if campaign == nil {
		response.Fail(c, errs.NotFound("campaign", id))
		return nil, false
	}
	return campaign, true
}
