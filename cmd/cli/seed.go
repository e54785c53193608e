package cli

import (
	"encoding/json"
	"fmt"
	"fundverse/internal/global/errs"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SeedFile 初始数据文件，字段名与 JSON 存储格式一致
type SeedFile struct {
	Users     []repository.SignupInput `json:"users"`
	Campaigns []model.CampaignInput    `json:"campaigns"`
}

// decodeFile 读取 YAML（JSON 是它的子集），按 json 标签映射到 out
func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "convert %s", path)
	}
	return errors.Wrapf(json.Unmarshal(b, out), "decode %s", path)
}

// SeedResult 每条记录的处理结果
type SeedResult struct {
	Users     int      `json:"users"`
	Campaigns int      `json:"campaigns"`
	Skipped   []string `json:"skipped"`
}

func seed(cmd *cobra.Command, a *app, f SeedFile) (SeedResult, error) {
	ctx := cmd.Context()
	res := SeedResult{Skipped: []string{}}

	for _, in := range f.Users {
		var err error
		if a.remote() {
			err = a.client.Post(ctx, "/user/signup", in, nil)
		} else {
			_, err = a.users.Signup(ctx, in)
		}
		switch {
		case err == nil:
			res.Users++
		case errors.Is(err, errs.ErrEmailTaken), isConflict(err):
			res.Skipped = append(res.Skipped, "user "+in.Email+": already exists")
		default:
			return res, explain(err)
		}
	}

	for i, in := range f.Campaigns {
		if _, err := a.campaigns.Create(ctx, in); err != nil {
			if _, ok := errs.AsValidation(err); ok {
				res.Skipped = append(res.Skipped, fmt.Sprintf("campaign #%d %q: %v", i+1, in.Title, explain(err)))
				continue
			}
			return res, err
		}
		res.Campaigns++
	}
	return res, nil
}

func isConflict(err error) bool {
	he, ok := errs.AsHTTP(err)
	return ok && he.StatusCode == 409
}

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load users and campaigns from a YAML or JSON file",
		Long: `Load users and campaigns from a YAML or JSON file.

The file has two optional lists, "users" and "campaigns", using the same
field names as the stored JSON (targetAmount, creatorType, ...). Existing
accounts and invalid campaigns are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f SeedFile
			if err := decodeFile(args[0], &f); err != nil {
				return err
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if reset {
					if err := a.campaigns.Clear(cmd.Context()); err != nil {
						return err
					}
				}
				res, err := seed(cmd, a, f)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d campaigns\n", res.Users, res.Campaigns)
				for _, s := range res.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "skipped %s\n", s)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "remove all campaigns before seeding")
	return cmd
}
