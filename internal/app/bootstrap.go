package app

import (
	"context"
	"fmt"
	"os"

	"gatewayctl/internal/config"
	"gatewayctl/pkg/logging"
)

// Application bootstraps gatewayctl and runs one of its modes
type Application struct {
	config *Config
}

// NewApplication sets up logging and loads the gateway configuration
func NewApplication(cfg *Config) (*Application, error) {
	logging.InitForCLI(cfg.logLevel(), os.Stderr)

	gatewayCfg, err := cfg.load()
	if err != nil {
		return nil, err
	}
	cfg.Gateway = &gatewayCfg

	return &Application{config: cfg}, nil
}

// load reads either the explicit config file or the layered configuration.
// It runs again before every start so edits take effect without a restart.
func (c *Config) load() (config.GatewayConfig, error) {
	if c.ConfigPath != "" {
		cfg, err := config.LoadConfigFromPath(c.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", c.ConfigPath)
			return config.GatewayConfig{}, fmt.Errorf("failed to load configuration from path %s: %w", c.ConfigPath, err)
		}
		logging.Debug("Bootstrap", "Loaded configuration from custom path: %s", c.ConfigPath)
		return c.applyOverrides(cfg), nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return config.GatewayConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	return c.applyOverrides(cfg), nil
}

// applyOverrides folds command line flags into the loaded configuration.
func (c *Config) applyOverrides(cfg config.GatewayConfig) config.GatewayConfig {
	if c.NoOpen {
		autoOpen := false
		cfg.Startup.AutoOpen = &autoOpen
	}
	return cfg
}

func (c *Config) logLevel() logging.LogLevel {
	if c.Debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

// Run executes the interactive panel, the default mode
func (a *Application) Run(ctx context.Context) error {
	return runUIMode(ctx, a.config)
}

// RunForeground starts the gateway and keeps it running until interrupted
func (a *Application) RunForeground(ctx context.Context) error {
	return runForegroundMode(ctx, a.config)
}

// RunMCP serves the gateway tools over stdio
func (a *Application) RunMCP(ctx context.Context) error {
	return runMCPMode(ctx, a.config)
}

// RunUpdate replaces the gateway binary
func (a *Application) RunUpdate(ctx context.Context) error {
	return runUpdateMode(ctx, a.config)
}

// RunOpen opens Drizzle Studio for an already running gateway
func (a *Application) RunOpen(ctx context.Context) error {
	return runOpenMode(ctx, a.config)
}

// RunPath prints where the gateway binary is (or will be) installed
func (a *Application) RunPath(ctx context.Context) error {
	return runPathMode(ctx, a.config)
}
