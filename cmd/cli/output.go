package cli

import (
	"encoding/json"
	"fmt"
	"fundverse/internal/global/errs"
	"fundverse/internal/model"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCampaigns(w io.Writer, format string, list []model.Campaign) error {
	now := time.Now()
	if format == "json" {
		views := make([]model.CampaignView, len(list))
		for i, c := range list {
			views[i] = c.View(now)
		}
		return printJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tRAISED\tTARGET\tFUNDED\tDAYS LEFT")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d%%\t%d\n",
			c.ID, c.Title, c.Category, c.Status, c.Raised, c.TargetAmount, c.FundedPercent(), c.DaysLeft(now))
	}
	return tw.Flush()
}

func printCampaign(w io.Writer, format string, c *model.Campaign) error {
	if format == "json" {
		return printJSON(w, c.View(time.Now()))
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", c.ID)
	fmt.Fprintf(tw, "Title\t%s\n", c.Title)
	fmt.Fprintf(tw, "Tagline\t%s\n", c.Tagline)
	fmt.Fprintf(tw, "Category\t%s\n", c.Category)
	fmt.Fprintf(tw, "Status\t%s\n", c.Status)
	fmt.Fprintf(tw, "Creator\t%s <%s>\n", c.Creator.Name, c.Creator.Email)
	fmt.Fprintf(tw, "Raised\t%.2f / %.2f (%d%%)\n", c.Raised, c.TargetAmount, c.FundedPercent())
	fmt.Fprintf(tw, "Backers\t%d\n", c.Backers)
	if !c.Deadline.IsZero() {
		fmt.Fprintf(tw, "Deadline\t%s (%d days left)\n", c.Deadline.Format(time.DateOnly), c.DaysLeft(time.Now()))
	}
	return tw.Flush()
}

func printUsers(w io.Writer, format string, list []model.PublicUser) error {
	if format == "json" {
		return printJSON(w, list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format(time.DateOnly))
	}
	return tw.Flush()
}

// explain 把校验错误展开成逐字段的提示
func explain(err error) error {
	ve, ok := errs.AsValidation(err)
	if !ok {
		return err
	}
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("  %s: %s", k, ve.Fields[k])
	}
	return errors.Errorf("validation failed:\n%s", strings.Join(lines, "\n"))
}
