package cmd

import (
	"gatewayctl/internal/app"

	"github.com/spf13/cobra"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the location of the gateway binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(func(cfg *app.Config) {
				cfg.Out = cmd.OutOrStdout()
			})
			if err != nil {
				return err
			}
			return application.RunPath(commandContext(cmd))
		},
	}
}
