package cmd

import (
	"context"
	"fmt"
	"os"

	"gatewayctl/internal/app"

	"github.com/spf13/cobra"
)

var (
	// configPath points at a single config file instead of the layered lookup.
	configPath string
	// debug enables verbose logging across the application.
	debug bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gatewayctl",
	Short: "Run and manage a local Drizzle Gateway",
	Long: `gatewayctl downloads the Drizzle Gateway binary for your platform,
runs it as a local process bound to 127.0.0.1 and opens Drizzle Studio
once it accepts connections.

Without a subcommand it shows the interactive panel.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed downloads, startup timeouts)
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gatewayctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// newApplication loads configuration and returns the bootstrapped application.
func newApplication(configure func(cfg *app.Config)) (*app.Application, error) {
	cfg := app.NewConfig(configPath, debug)
	cfg.Version = rootCmd.Version
	if configure != nil {
		configure(cfg)
	}
	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	// Assigned here because runUI reads rootCmd.
	rootCmd.RunE = runUI

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.yaml, .yml or .toml); default is the layered ~/.config/gatewayctl and ./.gatewayctl lookup")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newUICmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newPathCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
