package app

import (
	"io"
	"os"

	"gatewayctl/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging
	Debug bool

	// ConfigPath points at a single config file instead of the layered lookup
	ConfigPath string

	// NoOpen disables opening Drizzle Studio once the gateway is ready
	NoOpen bool

	// AssumeYes answers the update confirmation without prompting
	AssumeYes bool

	// Version is reported by the MCP server
	Version string

	// Gateway configuration, filled in by NewApplication
	Gateway *config.GatewayConfig

	// Terminal streams for prompts and plain output
	In  io.Reader
	Out io.Writer
}

// NewConfig creates a new application configuration
func NewConfig(configPath string, debug bool) *Config {
	return &Config{
		ConfigPath: configPath,
		Debug:      debug,
		In:         os.Stdin,
		Out:        os.Stdout,
	}
}
