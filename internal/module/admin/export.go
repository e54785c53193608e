package admin

import (
	"fmt"
	"fundverse/internal/model"
	"fundverse/tools"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// CampaignRow 导出表格的一行
type CampaignRow struct {
	ID            string    `excel:"ID"`
	Title         string    `excel:"Title"`
	Category      string    `excel:"Category"`
	Status        string    `excel:"Status"`
	CreatorType   string    `excel:"Creator Type"`
	CreatorName   string    `excel:"Creator"`
	CreatorEmail  string    `excel:"Email"`
	Organization  string    `excel:"Organization"`
	TargetAmount  float64   `excel:"Target"`
	Raised        float64   `excel:"Raised"`
	FundedPercent int       `excel:"Funded %"`
	Backers       int       `excel:"Backers"`
	Deadline      time.Time `excel:"Deadline"`
	DaysLeft      int       `excel:"Days Left"`
	Milestones    int       `excel:"Milestones"`
	Created       time.Time `excel:"Created"`
	Updated       time.Time `excel:"Updated"`
}

type summaryRow struct {
	Metric string `excel:"Metric"`
	Value  string `excel:"Value"`
}

func rows(list []model.Campaign, now time.Time) []CampaignRow {
	out := make([]CampaignRow, len(list))
	for i, c := range list {
		out[i] = CampaignRow{
			ID:            c.ID,
			Title:         c.Title,
			Category:      c.Category,
			Status:        string(c.Status),
			CreatorType:   string(c.CreatorType),
			CreatorName:   c.Creator.Name,
			CreatorEmail:  c.Creator.Email,
			Organization:  c.Creator.Organization,
			TargetAmount:  c.TargetAmount,
			Raised:        c.Raised,
			FundedPercent: c.FundedPercent(),
			Backers:       c.Backers,
			Deadline:      c.Deadline,
			DaysLeft:      c.DaysLeft(now),
			Milestones:    len(c.Milestones),
			Created:       c.Created,
			Updated:       c.Updated,
		}
	}
	return out
}

func summaryRows(s Summary) []summaryRow {
	out := []summaryRow{
		{"Campaigns", fmt.Sprint(s.Campaigns)},
		{"Total raised", fmt.Sprintf("%.2f", s.TotalRaised)},
		{"Total backers", fmt.Sprint(s.TotalBackers)},
		{"Ending in 7 days", fmt.Sprint(s.ActiveEndingIn)},
		{"Users", fmt.Sprint(s.Users)},
	}
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		out = append(out, summaryRow{"Status: " + st, fmt.Sprint(s.ByStatus[model.Status(st)])})
	}
	return out
}

// Workbook 生成包含 Campaigns 与 Summary 两个 sheet 的表格，调用方负责 Close
func Workbook(list []model.Campaign, users []model.User, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := tools.ExportToExcel(f, "Campaigns", rows(list, now)); err != nil {
		f.Close()
		return nil, err
	}
	if err := tools.ExportToExcel(f, "Summary", summaryRows(Summarize(list, users, now))); err != nil {
		f.Close()
		return nil, err
	}
	if idx, err := f.GetSheetIndex("Campaigns"); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// FileName fundverse_campaigns_20260301.xlsx
func FileName(now time.Time) string {
	return "fundverse_campaigns_" + strings.ReplaceAll(now.UTC().Format("2006-01-02"), "-", "") + ".xlsx"
}
