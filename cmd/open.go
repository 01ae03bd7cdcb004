package cmd

import (
	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open Drizzle Studio in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(nil)
			if err != nil {
				return err
			}
			return application.RunOpen(commandContext(cmd))
		},
	}
}
