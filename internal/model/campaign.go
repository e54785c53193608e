package model

import (
	"crypto/rand"
	"fundverse/internal/global/errs"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type CreatorType string

const (
	CreatorStudent CreatorType = "student"
	CreatorCompany CreatorType = "company"
)

// Categories 界面上可选的分类，校验时只要求非空
var Categories = []string{
	"Technology",
	"Health",
	"Education",
	"Environment",
	"Social Impact",
	"Art & Design",
	"Others",
}

const (
	IDPrefix             = "campaign_"
	MinDescriptionLength = 50
)

// EmailPattern 用户和项目发起人共用的邮箱格式
var EmailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type Creator struct {
	Name         string `json:"name"`
	Email        string `json:"email"` // 归属判断依据
	Organization string `json:"organization"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type Images struct {
	Cover      string   `json:"cover"`
	Additional []string `json:"additional"`
}

type Milestone struct {
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type Campaign struct {
	ID                  string      `json:"id"` // campaign_ + ULID，创建后不可修改
	Title               string      `json:"title"`
	Tagline             string      `json:"tagline"`
	Category            string      `json:"category"`
	CreatorType         CreatorType `json:"creatorType"`
	Description         string      `json:"description"`
	TargetAmount        float64     `json:"targetAmount"`
	MinimumContribution float64     `json:"minimumContribution"`
	Deadline            time.Time   `json:"deadline"` // 零值表示未设置
	Raised              float64     `json:"raised"`   // 只随捐款增加
	Backers             int         `json:"backers"`  // 每次捐款 +1
	Status              Status      `json:"status"`
	Creator             Creator     `json:"creator"`
	Images              Images      `json:"images"`
	PitchDeck           string      `json:"pitchDeck"` // 文件引用，不存内容
	IDProof             string      `json:"idProof"`
	Milestones          []Milestone `json:"milestones"`
	Created             time.Time   `json:"created"`
	Updated             time.Time   `json:"updated"`
}

// CampaignInput 创建项目时的原始输入
// 兼容旧表单的平铺字段（creatorName、email、coverImage 等），嵌套的 creator/images 优先
type CampaignInput struct {
	Title               string      `json:"title"`
	Tagline             string      `json:"tagline"`
	Category            string      `json:"category"`
	CreatorType         string      `json:"creatorType"`
	Description         string      `json:"description"`
	TargetAmount        float64     `json:"targetAmount"`
	MinimumContribution float64     `json:"minimumContribution"`
	Deadline            string      `json:"deadline"` // RFC 3339 或 YYYY-MM-DD
	Raised              float64     `json:"raised"`
	Backers             int         `json:"backers"`
	Status              string      `json:"status"`
	Creator             *Creator    `json:"creator,omitempty"`
	Images              *Images     `json:"images,omitempty"`
	PitchDeck           string      `json:"pitchDeck"`
	IDProof             string      `json:"idProof"`
	Milestones          []Milestone `json:"milestones"`

	CreatorName      string   `json:"creatorName,omitempty"`
	Email            string   `json:"email,omitempty"`
	Organization     string   `json:"organization,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	CoverImage       string   `json:"coverImage,omitempty"`
	AdditionalImages []string `json:"additionalImages,omitempty"`
}

// NewID 生成 campaign_ 前缀的 ULID，同一毫秒内也不会冲突
func NewID(now time.Time) string {
	return IDPrefix + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// NewCampaign 统一填充默认值，下游不需要再判断空字段
// 无法解析的截止日期按未设置处理，由 Validate 报错
func NewCampaign(in CampaignInput, now time.Time) Campaign {
	now = Now(now)
	deadline, _ := ParseDeadline(in.Deadline)

	c := Campaign{
		ID:                  NewID(now),
		Title:               in.Title,
		Tagline:             in.Tagline,
		Category:            in.Category,
		CreatorType:         normalizeCreatorType(in.CreatorType),
		Description:         in.Description,
		TargetAmount:        in.TargetAmount,
		MinimumContribution: in.MinimumContribution,
		Deadline:            deadline,
		Raised:              in.Raised,
		Backers:             in.Backers,
		Status:              normalizeStatus(in.Status),
		Creator: Creator{
			Name:         in.CreatorName,
			Email:        in.Email,
			Organization: in.Organization,
			City:         in.City,
			State:        in.State,
		},
		Images: Images{
			Cover:      in.CoverImage,
			Additional: []string{},
		},
		PitchDeck:  in.PitchDeck,
		IDProof:    in.IDProof,
		Milestones: []Milestone{},
		Created:    now,
		Updated:    now,
	}
	if in.Creator != nil {
		c.Creator = *in.Creator
	}
	if in.Images != nil {
		c.Images.Cover = in.Images.Cover
		c.Images.Additional = append(c.Images.Additional, in.Images.Additional...)
	} else {
		c.Images.Additional = append(c.Images.Additional, in.AdditionalImages...)
	}
	c.Milestones = append(c.Milestones, in.Milestones...)
	return c
}

// Now 统一时间精度：UTC 毫秒
func Now(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// ParseDeadline 接受 RFC 3339 或纯日期，纯日期视为当天 UTC 零点
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Now(t), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FundedPercent 已筹比例，四舍五入并限制在 [0,100]
func (c *Campaign) FundedPercent() int {
	if c.TargetAmount <= 0 {
		return 0
	}
	p := math.Round(c.Raised / c.TargetAmount * 100)
	return int(math.Max(0, math.Min(100, p)))
}

// FundingRatio 未截断的比例，用于热门排序
func (c *Campaign) FundingRatio() float64 {
	if c.TargetAmount <= 0 {
		return 0
	}
	return c.Raised / c.TargetAmount
}

// DaysLeft 距截止日期的天数（向上取整），已过期或未设置为 0
func (c *Campaign) DaysLeft(now time.Time) int {
	if c.Deadline.IsZero() {
		return 0
	}
	d := c.Deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(24*time.Hour)))
}

// IsPublic 只有审核通过或进行中的项目出现在公开列表
func (c *Campaign) IsPublic() bool {
	return c.Status == StatusApproved || c.Status == StatusActive
}

type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

// Err 校验通过时返回 nil
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return errs.NewValidation(r.Errors)
}

// Validate 只读取字段，不修改记录
func (c *Campaign) Validate() ValidationResult {
	e := make(map[string]string)

	if strings.TrimSpace(c.Title) == "" {
		e["title"] = "Campaign title is required"
	}
	if strings.TrimSpace(c.Tagline) == "" {
		e["tagline"] = "Campaign tagline is required"
	}
	if strings.TrimSpace(c.Category) == "" {
		e["category"] = "Category is required"
	}
	if strings.TrimSpace(c.Description) == "" || len([]rune(c.Description)) < MinDescriptionLength {
		e["description"] = "Description must be at least 50 characters"
	}
	if c.TargetAmount <= 0 || math.IsNaN(c.TargetAmount) || math.IsInf(c.TargetAmount, 0) {
		e["targetAmount"] = "Valid target amount is required"
	}
	if c.Deadline.IsZero() {
		e["deadline"] = "Deadline is required"
	}
	if strings.TrimSpace(c.Creator.Name) == "" {
		e["creatorName"] = "Creator name is required"
	}
	if strings.TrimSpace(c.Creator.Email) == "" || !EmailPattern.MatchString(c.Creator.Email) {
		e["creatorEmail"] = "Valid email is required"
	}

	// 以下几项表单不会产生，只拦截直接构造的脏数据
	if c.CreatorType != CreatorStudent && c.CreatorType != CreatorCompany {
		e["creatorType"] = "Creator type must be student or company"
	}
	if !validStatus(c.Status) {
		e["status"] = "Invalid campaign status"
	}
	if c.MinimumContribution < 0 {
		e["minimumContribution"] = "Minimum contribution cannot be negative"
	}
	if c.Raised < 0 {
		e["raised"] = "Raised amount cannot be negative"
	}
	if c.Backers < 0 {
		e["backers"] = "Backers cannot be negative"
	}

	return ValidationResult{IsValid: len(e) == 0, Errors: e}
}

// CanTransition 状态机：只允许从 pending 审核到 approved/active/rejected
// completed 目前没有自动转换
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusApproved, StatusActive, StatusRejected:
		return true
	}
	return false
}

// CampaignView 接口返回的结构，附带派生字段
type CampaignView struct {
	Campaign
	FundedPercent int `json:"fundedPercent"`
	DaysLeft      int `json:"daysLeft"`
}

func (c Campaign) View(now time.Time) CampaignView {
	return CampaignView{
		Campaign:      c,
		FundedPercent: c.FundedPercent(),
		DaysLeft:      c.DaysLeft(now),
	}
}

func normalizeStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusPending
	}
	return Status(s)
}

func normalizeCreatorType(s string) CreatorType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CreatorStudent
	}
	return CreatorType(s)
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusActive, StatusCompleted:
		return true
	}
	return false
}
