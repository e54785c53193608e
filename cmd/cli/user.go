package cli

import (
	"context"
	"fmt"
	"fundverse/internal/global/jwt"
	"fundverse/internal/model"
	usermod "fundverse/internal/module/user"
	"fundverse/internal/repository"
	"net/url"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Accounts and the local session",
	}
	cmd.AddCommand(
		newUserSignupCommand(opts),
		newUserLoginCommand(opts),
		newUserLogoutCommand(opts),
		newUserWhoamiCommand(opts),
		newUserListCommand(opts),
		newUserDeleteCommand(opts),
	)
	return cmd
}

// authenticate 本地模式直接查用户表并签发 token，远程模式请求服务端
func (a *app) authenticate(ctx context.Context, endpoint string, body any, local func() (*model.User, error)) (*usermod.LoginResult, error) {
	if a.remote() {
		var out usermod.LoginResult
		if err := a.client.Post(ctx, endpoint, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	u, err := local()
	if err != nil {
		return nil, err
	}
	return &usermod.LoginResult{
		Token: jwt.CreateToken(jwt.Payload{UserID: u.ID, Email: u.Email, Role: string(u.Role)}),
		User:  u.Public(),
	}, nil
}

func (a *app) startSession(cmd *cobra.Command, format string, res *usermod.LoginResult) error {
	if err := a.session.Login(cmd.Context(), res.User, res.Token); err != nil {
		return err
	}
	if format == "json" {
		return printJSON(cmd.OutOrStdout(), res.User)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s> (%s)\n", res.User.Name, res.User.Email, res.User.Role)
	return nil
}

func newUserSignupCommand(opts *RootOptions) *cobra.Command {
	var in repository.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a student or company account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				res, err := a.authenticate(cmd.Context(), "/user/signup", in, func() (*model.User, error) {
					return a.users.Signup(cmd.Context(), in)
				})
				if err != nil {
					return explain(err)
				}
				return a.startSession(cmd, opts.Format, res)
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&in.Role, "role", "student", "student | company")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password, role string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				body := map[string]string{"email": email, "password": password, "role": role}
				res, err := a.authenticate(cmd.Context(), "/user/login", body, func() (*model.User, error) {
					return a.users.Login(cmd.Context(), email, password, role)
				})
				if err != nil {
					return err
				}
				return a.startSession(cmd, opts.Format, res)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "", "expected role (optional)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				a.session.Logout(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func newUserWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				u := a.session.Current()
				if u == nil {
					return errors.New("not logged in")
				}
				return printUsers(cmd.OutOrStdout(), opts.Format, []model.PublicUser{*u})
			})
		},
	}
}

// listUsers 远程模式走管理员接口
func (a *app) listUsers(ctx context.Context) ([]model.User, error) {
	if a.remote() {
		var public []model.PublicUser
		if err := a.client.Get(ctx, "/admin/users", nil, &public); err != nil {
			return nil, err
		}
		out := make([]model.User, len(public))
		for i, u := range public {
			out[i] = model.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
		}
		return out, nil
	}
	return a.users.List(ctx)
}

func newUserListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Admin: list all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(model.RoleAdmin); err != nil {
					return err
				}
				users, err := a.listUsers(cmd.Context())
				if err != nil {
					return err
				}
				public := make([]model.PublicUser, len(users))
				for i := range users {
					public[i] = users[i].Public()
				}
				return printUsers(cmd.OutOrStdout(), opts.Format, public)
			})
		},
	}
}

func newUserDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Admin: delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, func(a *app) error {
				if err := a.requireRole(model.RoleAdmin); err != nil {
					return err
				}
				if u := a.session.Current(); u != nil && u.ID == args[0] {
					return errors.New("cannot delete the current admin")
				}
				var err error
				if a.remote() {
					err = a.client.Delete(cmd.Context(), "/admin/users/"+url.PathEscape(args[0]), nil)
				} else {
					_, err = a.users.Delete(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
				return nil
			})
		},
	}
}
