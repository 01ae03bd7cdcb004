// Package commands wires the resolver, provisioner, supervisor, panel and
// viewer into the four user actions and owns their lifetime.
package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gatewayctl/internal/artifact"
	"gatewayctl/internal/config"
	"gatewayctl/internal/httpclient"
	"gatewayctl/internal/notify"
	"gatewayctl/internal/panel"
	"gatewayctl/internal/provision"
	"gatewayctl/internal/supervisor"
	"gatewayctl/internal/viewer"
	"gatewayctl/pkg/logging"
)

const subsystem = "Commands"

// DefaultShutdownTimeout bounds how long Deactivate waits for the gateway to exit.
const DefaultShutdownTimeout = 5 * time.Second

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// AlwaysConfirm answers every question with answer.
func AlwaysConfirm(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return answer, nil })
}

// URLOpener shows a URL to the user.
type URLOpener interface {
	Open(url string) error
}

// Options configures an App. Only Config is required.
type Options struct {
	Config config.GatewayConfig
	// Reload re-reads settings before each start. Nil keeps Config.
	Reload func() (config.GatewayConfig, error)

	Notifier  notify.Notifier
	Confirmer Confirmer
	Opener    URLOpener
	// Resolver overrides the artifact resolver built from Config.Gateway.
	Resolver provision.URLResolver

	Spawn  supervisor.SpawnFunc
	Dial   supervisor.DialFunc
	Output func(stream supervisor.Stream, line string)
}

// App is the application context created at activation and torn down by
// Deactivate. Every command handler is a method on it.
type App struct {
	notifier  notify.Notifier
	confirmer Confirmer
	opener    URLOpener
	reload    func() (config.GatewayConfig, error)

	Panel       *panel.Controller
	Provisioner *provision.Provisioner
	Supervisor  *supervisor.Supervisor

	// starting is set from the moment Start begins provisioning until the
	// supervisor reports ready or failed.
	starting atomic.Bool

	mu  sync.Mutex
	cfg config.GatewayConfig
}

// New builds the application context. The panel starts in the stopped state.
func New(opts Options) *App {
	a := &App{
		notifier:  opts.Notifier,
		confirmer: opts.Confirmer,
		opener:    opts.Opener,
		reload:    opts.Reload,
		cfg:       opts.Config,
		Panel:     panel.New(),
	}
	if a.notifier == nil {
		a.notifier = notify.LogNotifier{Subsystem: subsystem}
	}
	if a.confirmer == nil {
		a.confirmer = AlwaysConfirm(false)
	}
	if a.opener == nil {
		a.opener = viewer.New(opts.Config.Viewer.Command)
	}

	client := httpclient.New(opts.Config.Gateway.Retries)
	resolver := opts.Resolver
	if resolver == nil {
		resolver = artifact.NewResolver(opts.Config.Gateway, client)
	}
	a.Provisioner = provision.New(opts.Config.StorageDir, resolver, client, a.notifier)

	a.Supervisor = supervisor.New(supervisor.Options{
		Notifier:        a.notifier,
		Output:          opts.Output,
		OnRunningChange: a.Panel.Refresh,
		OnReady:         a.onReady,
		Spawn:           opts.Spawn,
		Dial:            opts.Dial,
	})

	a.Panel.Refresh(false)
	return a
}

// Config returns the settings currently in effect.
func (a *App) Config() config.GatewayConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Items returns the panel entries for the current state.
func (a *App) Items() []panel.Item {
	return a.Panel.Items()
}

// Start launches the gateway unless one is already running. It blocks until
// the gateway is ready or startup failed.
func (a *App) Start(ctx context.Context) error {
	if a.Supervisor.HasProcess() || !a.starting.CompareAndSwap(false, true) {
		notify.Infof(a.notifier, "Drizzle Gateway is already running.")
		return supervisor.ErrAlreadyRunning
	}
	defer a.starting.Store(false)

	cfg, err := a.refreshConfig()
	if err != nil {
		notify.Errorf(a.notifier, "Failed to start gateway: %v", err)
		return err
	}

	path, err := a.binaryPath(ctx, cfg)
	if err != nil {
		logging.Error(subsystem, err, "Failed to provision gateway binary")
		notify.Errorf(a.notifier, "Failed to start gateway: %v", err)
		return err
	}

	logging.Info(subsystem, "Starting Drizzle Gateway from: %s", path)
	return a.Supervisor.Start(ctx, path, cfg)
}

// binaryPath prefers a configured binary that exists on disk and otherwise
// makes sure the managed copy is present.
func (a *App) binaryPath(ctx context.Context, cfg config.GatewayConfig) (string, error) {
	if cfg.BinaryPath != "" {
		if _, err := os.Stat(cfg.BinaryPath); err == nil {
			return cfg.BinaryPath, nil
		}
		logging.Warn(subsystem, "Configured binaryPath %s does not exist, using managed binary", cfg.BinaryPath)
	}
	return a.Provisioner.EnsureBinary(ctx)
}

// Stop terminates the running gateway, if any.
func (a *App) Stop() error {
	if !a.Supervisor.HasProcess() {
		return nil
	}
	return a.Supervisor.Stop()
}

// StudioURL is the address the gateway serves Drizzle Studio on.
func (a *App) StudioURL() string {
	return "http://" + supervisor.LoopbackHost + ":" + strconv.Itoa(a.Config().Port)
}

// Open shows Drizzle Studio in the browser.
func (a *App) Open() error {
	url := a.StudioURL()
	if err := a.opener.Open(url); err != nil {
		notify.Errorf(a.notifier, "Failed to open Drizzle Studio: %v", err)
		return err
	}
	return nil
}

// UpdateBinary asks for confirmation and redownloads the binary. It refuses
// to run while the gateway is starting or running. A declined confirmation is not an error.
func (a *App) UpdateBinary(ctx context.Context) error {
	if a.Supervisor.HasProcess() || a.starting.Load() {
		notify.Warnf(a.notifier, "Please stop the Gateway before updating.")
		return ErrGatewayRunning
	}

	ok, err := a.confirmer.Confirm(ctx, UpdateConfirmation)
	if err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		logging.Info(subsystem, "Update cancelled")
		return nil
	}
	return a.Provisioner.Redownload(ctx)
}

// Execute runs the command with the given panel command ID.
func (a *App) Execute(ctx context.Context, id string) error {
	switch id {
	case panel.CommandStart:
		return a.Start(ctx)
	case panel.CommandStop:
		return a.Stop()
	case panel.CommandOpen:
		return a.Open()
	case panel.CommandUpdateBinary:
		return a.UpdateBinary(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
}

// Deactivate stops the gateway and waits briefly for it to exit.
func (a *App) Deactivate(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultShutdownTimeout)
		defer cancel()
	}
	logging.Debug(subsystem, "Deactivating")
	return a.Supervisor.Shutdown(ctx)
}

func (a *App) onReady() {
	if !a.Config().Startup.ShouldAutoOpen() {
		return
	}
	if err := a.Open(); err != nil {
		logging.Warn(subsystem, "Auto-open failed: %v", err)
	}
}

func (a *App) refreshConfig() (config.GatewayConfig, error) {
	if a.reload == nil {
		return a.Config(), nil
	}
	cfg, err := a.reload()
	if err != nil {
		return config.GatewayConfig{}, fmt.Errorf("reload config: %w", err)
	}
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	return cfg, nil
}
