package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gatewayctl/internal/commands"
	"gatewayctl/internal/mcpserver"
	"gatewayctl/internal/notify"
	"gatewayctl/internal/supervisor"
	"gatewayctl/internal/tui"
	"gatewayctl/internal/viewer"
	"gatewayctl/pkg/logging"
)

// runUIMode shows the interactive panel until the user quits
func runUIMode(ctx context.Context, cfg *Config) error {
	logChan := logging.InitForTUI(cfg.logLevel())
	defer logging.CloseTUIChannel()

	bridge := tui.NewBridge()
	notifier := notify.Tee{bridge, notify.LogNotifier{Subsystem: "Notify"}}
	gateway := newGateway(cfg, notifier, bridge)
	defer deactivate(gateway)

	if err := tui.Run(ctx, gateway, bridge, logChan); err != nil {
		logging.Error("TUI-Lifecycle", err, "Error running TUI program")
		return err
	}
	logging.Info("TUI-Lifecycle", "TUI exited.")
	return nil
}

// foregroundSignals end a foreground run, including while the gateway is
// still being downloaded or started.
var foregroundSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// runForegroundMode starts the gateway and waits for Ctrl+C or the gateway exiting
func runForegroundMode(ctx context.Context, cfg *Config) error {
	ctx, stop := signal.NotifyContext(ctx, foregroundSignals...)
	defer stop()

	gateway := newGateway(cfg, notify.LogNotifier{Subsystem: "CLI"}, nil)
	defer deactivate(gateway)

	if err := gateway.Start(ctx); err != nil {
		return err
	}
	logging.Info("CLI", "Drizzle Studio: %s. Press Ctrl+C to stop the gateway.", gateway.StudioURL())

	select {
	case <-ctx.Done():
		logging.Info("CLI", "--- Shutting down gateway ---")
	case <-gateway.Supervisor.Done():
		return errors.New("gateway exited")
	}
	return nil
}

// runMCPMode serves the MCP tools on stdio; stdout belongs to the protocol
func runMCPMode(ctx context.Context, cfg *Config) error {
	journal := &notify.Recorder{}
	notifier := notify.Tee{notify.LogNotifier{Subsystem: "MCP"}, journal}
	// The confirm argument of gateway_update stands in for the prompt.
	gateway := newGateway(cfg, notifier, commands.AlwaysConfirm(true))
	defer deactivate(gateway)

	return mcpserver.New(gateway, journal, cfg.Version).ServeStdio()
}

// runUpdateMode redownloads the binary after asking on the terminal
func runUpdateMode(ctx context.Context, cfg *Config) error {
	confirmer := promptConfirmer(cfg.In, cfg.Out)
	if cfg.AssumeYes {
		confirmer = commands.AlwaysConfirm(true)
	}
	gateway := newGateway(cfg, notify.LogNotifier{Subsystem: "CLI"}, confirmer)
	return gateway.UpdateBinary(ctx)
}

// runOpenMode opens Drizzle Studio in the browser
func runOpenMode(ctx context.Context, cfg *Config) error {
	url := fmt.Sprintf("http://%s:%d", supervisor.LoopbackHost, cfg.Gateway.Port)
	return viewer.New(cfg.Gateway.Viewer.Command).Open(url)
}

// runPathMode prints the binary location
func runPathMode(ctx context.Context, cfg *Config) error {
	gateway := newGateway(cfg, notify.LogNotifier{Subsystem: "CLI"}, nil)
	status := gateway.Status()
	fmt.Fprintln(cfg.Out, status.BinaryPath)
	if !status.BinaryInstalled {
		logging.Info("CLI", "Binary not installed yet; it is downloaded on first start.")
	}
	return nil
}

// deactivate stops the gateway when a mode ends.
func deactivate(gateway *commands.App) {
	ctx, cancel := context.WithTimeout(context.Background(), commands.DefaultShutdownTimeout)
	defer cancel()
	if err := gateway.Deactivate(ctx); err != nil {
		logging.Warn("Bootstrap", "Gateway did not stop cleanly: %v", err)
	}
}
