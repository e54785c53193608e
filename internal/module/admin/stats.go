package admin

import (
	"encoding/json"
	"fundverse/internal/model"
	"time"
)

// Summary 管理后台首页的汇总数据
type Summary struct {
	Campaigns      int                  `json:"campaigns"`
	ByStatus       map[model.Status]int `json:"byStatus"`
	ByCategory     map[string]int       `json:"byCategory"`
	TotalRaised    float64              `json:"totalRaised"`
	TotalBackers   int                  `json:"totalBackers"`
	ActiveEndingIn int                  `json:"activeEndingIn7Days"`
	Users          int                  `json:"users"`
	ByRole         map[model.Role]int   `json:"byRole"`
	Storage        StorageUsage         `json:"storage"`
}

// StorageUsage 命名空间下的键数量和 JSON 体积
type StorageUsage struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

// Usage 统计 GetAll 返回的原始数据
func Usage(all map[string]json.RawMessage) StorageUsage {
	u := StorageUsage{Keys: len(all)}
	for _, raw := range all {
		u.Bytes += len(raw)
	}
	return u
}

// Summarize 只做计数，不修改任何记录
func Summarize(campaigns []model.Campaign, users []model.User, now time.Time) Summary {
	s := Summary{
		Campaigns:  len(campaigns),
		ByStatus:   make(map[model.Status]int),
		ByCategory: make(map[string]int),
		Users:      len(users),
		ByRole:     make(map[model.Role]int),
	}
	for _, c := range campaigns {
		s.ByStatus[c.Status]++
		s.ByCategory[c.Category]++
		s.TotalRaised += c.Raised
		s.TotalBackers += c.Backers
		if c.IsPublic() && !c.Deadline.IsZero() && c.Deadline.After(now) && c.DaysLeft(now) <= 7 {
			s.ActiveEndingIn++
		}
	}
	for _, u := range users {
		s.ByRole[u.Role]++
	}
	return s
}
