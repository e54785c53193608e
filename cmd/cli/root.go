// Package cli 是 fundverse 命令行：启动服务，以及在本地存储或远程 API 上管理项目和用户
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RootOptions 所有子命令共享的全局参数
type RootOptions struct {
	ConfigPath string
	Remote     bool
	API        string
	Format     string // text | json
	Verbose    bool
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fundverse",
		Short: "FundVerse crowdfunding data service",
		Long: `FundVerse crowdfunding data service.

Commands operate on the configured local store, or on a running server
when --remote is given (or api.mode is "remote" in config.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return errors.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.Remote, "remote", false, "talk to a running server instead of the local store")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "server base URL for remote mode")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCampaignCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewMediaCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
