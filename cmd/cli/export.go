package cli

import (
	"fmt"
	"fundverse/internal/model"
	"fundverse/internal/module/admin"
	"fundverse/internal/repository"
	"fundverse/tools"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewExportCommand(opts *RootOptions) *cobra.Command {
	var (
		dir   string
		force bool
		f     repository.Filters
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Admin: export campaigns and a summary to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(model.RoleAdmin); err != nil {
					return err
				}
				list, err := a.campaigns.GetAll(cmd.Context(), f)
				if err != nil {
					return err
				}
				users, err := a.listUsers(cmd.Context())
				if err != nil {
					return err
				}

				now := time.Now()
				path := filepath.Join(dir, admin.FileName(now))
				if tools.FileExist(path) && !force {
					return errors.Errorf("%s already exists, pass --force to overwrite", path)
				}

				book, err := admin.Workbook(list, users, now)
				if err != nil {
					return err
				}
				defer book.Close()

				if err := book.SaveAs(path); err != nil {
					return errors.Wrapf(err, "save %s", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d campaigns to %s\n", len(list), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", ".", "output directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite today's export if it exists")
	cmd.Flags().StringVar(&f.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&f.SortBy, "sort", "", "sort order")
	return cmd
}

func NewClearCommand(opts *RootOptions) *cobra.Command {
	var yes, users bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Admin: remove all campaigns, payment records and stored preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(model.RoleAdmin); err != nil {
					return err
				}
				if a.remote() {
					if err := a.client.Post(cmd.Context(), "/admin/clear", nil, nil); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "cleared")
					return nil
				}

				ropts := repository.ResetOptions{Users: users}
				if self := a.session.Current(); self != nil {
					ropts.KeepUsers = []string{self.ID}
				}
				res, err := repository.Reset(cmd.Context(), a.store, a.campaigns, a.users, ropts)
				if err != nil {
					return err
				}
				if users {
					fmt.Fprintf(cmd.OutOrStdout(), "cleared (%d users removed)\n", res.UsersRemoved)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	cmd.Flags().BoolVar(&users, "users", false, "also remove every account except the current admin")
	return cmd
}
