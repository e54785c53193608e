package cli

import (
	"fmt"
	"fundverse/internal/global/errs"
	"fundverse/internal/model"
	"fundverse/internal/repository"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewCampaignCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "campaign",
		Aliases: []string{"campaigns"},
		Short:   "Browse and manage campaigns",
	}
	cmd.AddCommand(
		newCampaignListCommand(opts),
		newCampaignGetCommand(opts),
		newCampaignCreateCommand(opts),
		newCampaignUpdateCommand(opts),
		newCampaignDeleteCommand(opts),
		newCampaignContributeCommand(opts),
		newCampaignReviewCommand(opts, "approve"),
		newCampaignReviewCommand(opts, "reject"),
	)
	return cmd
}

func newCampaignListCommand(opts *RootOptions) *cobra.Command {
	var f repository.Filters
	var creator string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Example: `  fundverse campaign list --public --sort "Most Funded"
  fundverse campaign list --category Technology --search solar`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				var (
					list []model.Campaign
					err  error
				)
				if creator != "" {
					list, err = a.campaigns.GetByCreator(cmd.Context(), creator)
				} else {
					list, err = a.campaigns.GetAll(cmd.Context(), f)
				}
				if err != nil {
					return err
				}
				return printCampaigns(cmd.OutOrStdout(), opts.Format, list)
			})
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.Search, "search", "", "match title, description or creator name")
	cmd.Flags().StringVar(&f.SortBy, "sort", "", "Trending | Newest | Ending Soon | Most Funded | Most Backers")
	cmd.Flags().BoolVar(&f.PublicOnly, "public", false, "only approved and active campaigns")
	cmd.Flags().StringVar(&creator, "creator", "", "only campaigns created by this email")
	return cmd
}

func newCampaignGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				c, err := a.campaigns.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if c == nil {
					return errs.NotFound("campaign", args[0])
				}
				return printCampaign(cmd.OutOrStdout(), opts.Format, c)
			})
		},
	}
}

// campaignFlags create 与 update 共用的字段参数
type campaignFlags struct {
	file         string
	title        string
	tagline      string
	category     string
	creatorType  string
	description  string
	target       float64
	minimum      float64
	deadline     string
	creatorName  string
	creatorEmail string
	organization string
	cover        string
	pitchDeck    string
	idProof      string
	status       string
}

func (f *campaignFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the campaign from a JSON or YAML file")
	cmd.Flags().StringVar(&f.title, "title", "", "campaign title")
	cmd.Flags().StringVar(&f.tagline, "tagline", "", "one-line tagline")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.creatorType, "creator-type", "", "student | company")
	cmd.Flags().StringVar(&f.description, "description", "", "description (at least 50 characters)")
	cmd.Flags().Float64Var(&f.target, "target", 0, "target amount")
	cmd.Flags().Float64Var(&f.minimum, "minimum", 0, "minimum contribution")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&f.creatorName, "creator-name", "", "creator name")
	cmd.Flags().StringVar(&f.creatorEmail, "creator-email", "", "creator email")
	cmd.Flags().StringVar(&f.organization, "organization", "", "creator organization")
	cmd.Flags().StringVar(&f.cover, "cover", "", "cover image reference")
	cmd.Flags().StringVar(&f.pitchDeck, "pitch-deck", "", "pitch deck reference")
	cmd.Flags().StringVar(&f.idProof, "id-proof", "", "id proof reference")
	cmd.Flags().StringVar(&f.status, "status", "", "status (admin only)")
}

func (f *campaignFlags) input(cmd *cobra.Command) (model.CampaignInput, error) {
	var in model.CampaignInput
	if f.file != "" {
		if err := decodeFile(f.file, &in); err != nil {
			return in, err
		}
	}
	set := cmd.Flags().Changed
	if set("title") {
		in.Title = f.title
	}
	if set("tagline") {
		in.Tagline = f.tagline
	}
	if set("category") {
		in.Category = f.category
	}
	if set("creator-type") {
		in.CreatorType = f.creatorType
	}
	if set("description") {
		in.Description = f.description
	}
	if set("target") {
		in.TargetAmount = f.target
	}
	if set("minimum") {
		in.MinimumContribution = f.minimum
	}
	if set("deadline") {
		in.Deadline = f.deadline
	}
	if set("creator-name") || set("creator-email") || set("organization") {
		if in.Creator == nil {
			in.Creator = &model.Creator{}
		}
		if set("creator-name") {
			in.Creator.Name = f.creatorName
		}
		if set("creator-email") {
			in.Creator.Email = f.creatorEmail
		}
		if set("organization") {
			in.Creator.Organization = f.organization
		}
	}
	if set("cover") {
		in.CoverImage = f.cover
	}
	if set("pitch-deck") {
		in.PitchDeck = f.pitchDeck
	}
	if set("id-proof") {
		in.IDProof = f.idProof
	}
	if set("status") {
		in.Status = f.status
	}
	return in, nil
}

func (f *campaignFlags) patch(cmd *cobra.Command) (model.CampaignPatch, error) {
	var p model.CampaignPatch
	if f.file != "" {
		if err := decodeFile(f.file, &p); err != nil {
			return p, err
		}
	}
	set := cmd.Flags().Changed
	if set("title") {
		p.Title = &f.title
	}
	if set("tagline") {
		p.Tagline = &f.tagline
	}
	if set("category") {
		p.Category = &f.category
	}
	if set("creator-type") {
		p.CreatorType = &f.creatorType
	}
	if set("description") {
		p.Description = &f.description
	}
	if set("target") {
		p.TargetAmount = &f.target
	}
	if set("minimum") {
		p.MinimumContribution = &f.minimum
	}
	if set("deadline") {
		p.Deadline = &f.deadline
	}
	if set("pitch-deck") {
		p.PitchDeck = &f.pitchDeck
	}
	if set("id-proof") {
		p.IDProof = &f.idProof
	}
	if set("status") {
		p.Status = &f.status
	}
	return p, nil
}

func newCampaignCreateCommand(opts *RootOptions) *cobra.Command {
	f := &campaignFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a campaign (starts as pending)",
		Example: `  fundverse campaign create -f campaign.yaml
  fundverse campaign create --title Solar --tagline "Clean power" --category Environment \
    --description "..." --target 5000 --deadline 2026-12-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(); err != nil {
					return err
				}
				// 与服务端一致：普通用户不能指定审核状态和筹款数据
				if !a.isAdmin() {
					in.Status, in.Raised, in.Backers = "", 0, 0
				}
				if u := a.session.Current(); u != nil && in.Creator == nil && in.Email == "" {
					in.Creator = &model.Creator{Name: u.Name, Email: u.Email}
				}

				c, err := a.campaigns.Create(cmd.Context(), in)
				if err != nil {
					return explain(err)
				}
				return printCampaign(cmd.OutOrStdout(), opts.Format, c)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newCampaignUpdateCommand(opts *RootOptions) *cobra.Command {
	f := &campaignFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return errors.New("nothing to update: pass --file or at least one field flag")
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.checkOwner(cmd, args[0]); err != nil {
					return err
				}
				if !a.isAdmin() && !a.remote() && (patch.Status != nil || patch.Raised != nil || patch.Backers != nil) {
					return errors.New("status, raised and backers are managed by the platform")
				}
				c, err := a.campaigns.Update(cmd.Context(), args[0], patch)
				if err != nil {
					return explain(err)
				}
				return printCampaign(cmd.OutOrStdout(), opts.Format, c)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newCampaignDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a campaign (no error if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.checkOwner(cmd, args[0]); err != nil && !errs.IsNotFound(err) {
					return err
				}
				if _, err := a.campaigns.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newCampaignContributeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contribute <id> <amount>",
		Short: "Record a contribution (no real payment is made)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.Wrapf(err, "invalid amount %q", args[1])
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(); err != nil {
					return err
				}
				c, err := a.campaigns.AddContribution(cmd.Context(), args[0], amount)
				if err != nil {
					return explain(err)
				}
				return printCampaign(cmd.OutOrStdout(), opts.Format, c)
			})
		},
	}
}

func newCampaignReviewCommand(opts *RootOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: "Admin: " + action + " a pending campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(model.RoleAdmin); err != nil {
					return err
				}
				review := a.campaigns.Approve
				if action == "reject" {
					review = a.campaigns.Reject
				}
				c, err := review(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				return printCampaign(cmd.OutOrStdout(), opts.Format, c)
			})
		},
	}
}

// checkOwner 本地模式下只有发起人和管理员可以修改项目
func (a *app) checkOwner(cmd *cobra.Command, id string) error {
	if err := a.requireRole(); err != nil {
		return err
	}
	if a.remote() || a.isAdmin() {
		return nil
	}
	c, err := a.campaigns.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if c == nil {
		return errs.NotFound("campaign", id)
	}
	if model.NormalizeEmail(c.Creator.Email) != model.NormalizeEmail(a.session.Current().Email) {
		return errors.New("permission denied: only the creator or an admin can change this campaign")
	}
	return nil
}
