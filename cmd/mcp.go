package cmd

import (
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the gateway commands as MCP tools over stdio",
		Long: `Runs an MCP server on stdin/stdout exposing gateway_start, gateway_stop,
gateway_open, gateway_update and gateway_status. gateway_update requires
confirm: true. The gateway is stopped when the client disconnects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(nil)
			if err != nil {
				return err
			}
			return application.RunMCP(commandContext(cmd))
		},
	}
}
