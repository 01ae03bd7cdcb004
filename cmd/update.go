package cmd

import (
	"gatewayctl/internal/app"

	"github.com/spf13/cobra"
)

// updateYes skips the confirmation prompt.
var updateYes bool

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Redownload the latest Drizzle Gateway binary",
		Long: `Deletes the managed gateway binary and downloads the latest release for
this platform. Stop the gateway before updating.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(func(cfg *app.Config) {
				cfg.AssumeYes = updateYes
				cfg.In = cmd.InOrStdin()
				cfg.Out = cmd.OutOrStdout()
			})
			if err != nil {
				return err
			}
			return application.RunUpdate(commandContext(cmd))
		},
	}
	cmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
