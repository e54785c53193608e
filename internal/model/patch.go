package model

import (
	"fundverse/internal/global/errs"
	"strings"
	"time"
)

// CampaignPatch 部分更新，nil 字段保持原值
type CampaignPatch struct {
	Title               *string      `json:"title,omitempty"`
	Tagline             *string      `json:"tagline,omitempty"`
	Category            *string      `json:"category,omitempty"`
	CreatorType         *string      `json:"creatorType,omitempty"`
	Description         *string      `json:"description,omitempty"`
	TargetAmount        *float64     `json:"targetAmount,omitempty"`
	MinimumContribution *float64     `json:"minimumContribution,omitempty"`
	Deadline            *string      `json:"deadline,omitempty"`
	Raised              *float64     `json:"raised,omitempty"`
	Backers             *int         `json:"backers,omitempty"`
	Status              *string      `json:"status,omitempty"`
	Creator             *Creator     `json:"creator,omitempty"`
	Images              *Images      `json:"images,omitempty"`
	PitchDeck           *string      `json:"pitchDeck,omitempty"`
	IDProof             *string      `json:"idProof,omitempty"`
	Milestones          *[]Milestone `json:"milestones,omitempty"`
}

// IsEmpty 没有任何字段需要修改
func (p *CampaignPatch) IsEmpty() bool {
	return *p == CampaignPatch{}
}

// ApplyPatch 把 p 合并到 c 上并刷新 Updated
// id 与 created 永远不会被修改；截止日期格式错误时返回 *errs.ValidationError 且 c 不变
func (c *Campaign) ApplyPatch(p CampaignPatch, now time.Time) error {
	var deadline time.Time
	if p.Deadline != nil {
		d, err := ParseDeadline(*p.Deadline)
		if err != nil {
			return errs.NewValidation(map[string]string{"deadline": "Invalid deadline"})
		}
		deadline = d
	}

	setString(&c.Title, p.Title)
	setString(&c.Tagline, p.Tagline)
	setString(&c.Category, p.Category)
	setString(&c.Description, p.Description)
	setString(&c.PitchDeck, p.PitchDeck)
	setString(&c.IDProof, p.IDProof)
	if p.CreatorType != nil {
		c.CreatorType = CreatorType(strings.ToLower(strings.TrimSpace(*p.CreatorType)))
	}
	if p.Status != nil {
		c.Status = normalizeStatus(*p.Status)
	}
	if p.TargetAmount != nil {
		c.TargetAmount = *p.TargetAmount
	}
	if p.MinimumContribution != nil {
		c.MinimumContribution = *p.MinimumContribution
	}
	if p.Deadline != nil {
		c.Deadline = deadline
	}
	if p.Raised != nil {
		c.Raised = *p.Raised
	}
	if p.Backers != nil {
		c.Backers = *p.Backers
	}
	if p.Creator != nil {
		c.Creator = *p.Creator
	}
	if p.Images != nil {
		c.Images = Images{Cover: p.Images.Cover, Additional: append([]string{}, p.Images.Additional...)}
	}
	if p.Milestones != nil {
		c.Milestones = append([]Milestone{}, (*p.Milestones)...)
	}

	c.Updated = Now(now)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
