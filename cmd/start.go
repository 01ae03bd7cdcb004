package cmd

import (
	"gatewayctl/internal/app"

	"github.com/spf13/cobra"
)

// startNoOpen keeps the browser closed after the gateway becomes ready.
var startNoOpen bool

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Drizzle Gateway in the foreground",
		Long: `Starts the Drizzle Gateway, downloading the binary first if needed, and
waits until it accepts connections on 127.0.0.1. The gateway keeps running
until Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(func(cfg *app.Config) {
				cfg.NoOpen = startNoOpen
			})
			if err != nil {
				return err
			}
			return application.RunForeground(commandContext(cmd))
		},
	}
	cmd.Flags().BoolVar(&startNoOpen, "no-open", false, "Do not open Drizzle Studio once the gateway is ready")
	return cmd
}
