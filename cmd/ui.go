package cmd

import (
	"github.com/spf13/cobra"
)

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Show the interactive gateway panel",
		Long: `Shows the gateway panel. While the gateway is stopped the panel offers
Start Gateway and Update Binary; while it runs it offers Stop Gateway and
Open Studio. Quitting the panel stops the gateway.`,
		Args: cobra.NoArgs,
		RunE: runUI,
	}
}

func runUI(cmd *cobra.Command, args []string) error {
	application, err := newApplication(nil)
	if err != nil {
		return err
	}
	return application.Run(commandContext(cmd))
}
