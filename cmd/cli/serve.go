package cli

import (
	"fundverse/cmd/server"
	"fundverse/config"

	"github.com/spf13/cobra"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API that remote mode talks to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.SetPath(opts.ConfigPath)
			server.Init()
			return server.Run()
		},
	}
}
