package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"gatewayctl/internal/config"
	"gatewayctl/internal/notify"
	"gatewayctl/pkg/logging"

	"github.com/google/uuid"
)

const (
	subsystem        = "Supervisor"
	outputSubsystem  = "Gateway"
	LoopbackHost     = "127.0.0.1"
	stderrLinePrefix = "[Log]: "

	// DefaultKillGrace is how long a terminated gateway may take to exit
	// before its process group is killed.
	DefaultKillGrace = 2 * time.Second
	// outputDrainDelay bounds how long exit handling waits for output pipes
	// held open by processes the gateway forked.
	outputDrainDelay = 2 * time.Second
)

var (
	// ErrAlreadyRunning rejects a start while a gateway is starting or running.
	ErrAlreadyRunning = errors.New("gateway is already running")
	// ErrSpawn wraps failures to launch the binary.
	ErrSpawn = errors.New("failed to start gateway")
	// ErrPortTimeout is returned when the gateway did not accept connections in time.
	ErrPortTimeout = errors.New("timed out waiting for gateway")
	// ErrExitedEarly is returned when the gateway exited before it became ready.
	ErrExitedEarly = errors.New("gateway exited before it became ready")
)

// State is the lifecycle state of the supervised gateway.
type State string

const (
	StateStopped  State = "Stopped"
	StateStarting State = "Starting"
	StateRunning  State = "Running"
)

// Stream identifies which child output stream a line came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// SpawnFunc prepares the command for the binary at path with env.
type SpawnFunc func(path string, env []string) *exec.Cmd

// DialFunc attempts a TCP connection to addr.
type DialFunc func(ctx context.Context, addr string) error

// Options wires the supervisor into its host. Zero values get defaults.
type Options struct {
	Notifier notify.Notifier
	// Output receives every line the gateway prints.
	Output func(stream Stream, line string)
	// OnRunningChange fires true once the process is spawned and false once it exits.
	OnRunningChange func(running bool)
	// OnReady fires after the port accepts connections.
	OnReady func()

	Spawn SpawnFunc
	Dial  DialFunc
	// KillGrace overrides DefaultKillGrace.
	KillGrace time.Duration
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State     State
	RunID     string
	PID       int
	Port      int
	StartedAt time.Time
}

type instance struct {
	id        string
	cmd       *exec.Cmd
	port      int
	startedAt time.Time
	done      chan struct{}
}

// Supervisor runs at most one gateway process at a time.
type Supervisor struct {
	opts Options

	mu       sync.Mutex
	state    State
	instance *instance
}

// New creates a stopped supervisor.
func New(opts Options) *Supervisor {
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{Subsystem: subsystem}
	}
	if opts.Output == nil {
		opts.Output = logOutput
	}
	if opts.Spawn == nil {
		opts.Spawn = defaultSpawn
	}
	if opts.Dial == nil {
		opts.Dial = defaultDial
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = DefaultKillGrace
	}
	return &Supervisor{opts: opts, state: StateStopped}
}

// BuildEnv overlays the gateway settings on top of base.
func BuildEnv(base []string, cfg config.GatewayConfig) []string {
	env := append([]string(nil), base...)
	env = append(env,
		"DATABASE_URL="+cfg.DatabaseURL,
		"PORT="+strconv.Itoa(cfg.Port),
	)
	if cfg.Password != "" {
		env = append(env, "MASTERPASS="+cfg.Password)
	}
	return append(env, "HOST="+LoopbackHost)
}

// Start launches the binary at path and blocks until it accepts connections on
// cfg.Port, the startup timeout elapses, or ctx is done. A start while another
// gateway is starting or running is rejected before anything is spawned.
func (s *Supervisor) Start(ctx context.Context, path string, cfg config.GatewayConfig) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		notify.Infof(s.opts.Notifier, "Drizzle Gateway is already running.")
		return ErrAlreadyRunning
	}
	s.state = StateStarting
	s.mu.Unlock()

	inst, err := s.spawn(path, cfg)
	if err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		logging.Error(subsystem, err, "Failed to spawn %s", path)
		notify.Errorf(s.opts.Notifier, "Failed to start gateway: %v", err)
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	return s.opts.Notifier.Progress("Starting Drizzle Gateway...", func() error {
		return s.awaitReady(ctx, inst, cfg)
	})
}

func (s *Supervisor) spawn(path string, cfg config.GatewayConfig) (*instance, error) {
	cmd := s.opts.Spawn(path, BuildEnv(os.Environ(), cfg))
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = sysProcAttr()
	}

	// Wait must not depend on the pipes reaching EOF: a grandchild can keep
	// them open long after the gateway itself exited.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = outputDrainDelay
	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return nil, err
	}

	inst := &instance{
		id:        uuid.NewString(),
		cmd:       cmd,
		port:      cfg.Port,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.instance = inst
	s.mu.Unlock()

	logging.Info(subsystem, "Spawned gateway (PID: %d, run: %s)", cmd.Process.Pid, inst.id)
	s.fireRunningChange(true)

	var readers sync.WaitGroup
	readers.Add(2)
	go s.forward(stdoutR, StreamStdout, &readers)
	go s.forward(stderrR, StreamStderr, &readers)
	go s.waitForExit(inst, &readers, stdoutW, stderrW)

	return inst, nil
}

func (s *Supervisor) forward(r io.Reader, stream Stream, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.opts.Output(stream, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logging.Warn(subsystem, "Reading gateway output: %v", err)
		_, _ = io.Copy(io.Discard, r)
	}
}

// waitForExit is the only place that clears the running instance.
func (s *Supervisor) waitForExit(inst *instance, readers *sync.WaitGroup, outputs ...io.Closer) {
	waitErr := inst.cmd.Wait()
	for _, w := range outputs {
		_ = w.Close()
	}
	readers.Wait()

	exitDesc := describeExit(inst.cmd.ProcessState, waitErr)
	s.opts.Output(StreamStdout, "Drizzle Gateway exited with "+exitDesc)
	logging.Info(subsystem, "Gateway (PID: %d) exited with %s", inst.cmd.Process.Pid, exitDesc)

	s.mu.Lock()
	if s.instance == inst {
		s.instance = nil
		s.state = StateStopped
	}
	s.mu.Unlock()
	close(inst.done)

	s.fireRunningChange(false)
	notify.Infof(s.opts.Notifier, "Drizzle Gateway stopped.")
}

func (s *Supervisor) awaitReady(ctx context.Context, inst *instance, cfg config.GatewayConfig) error {
	interval := cfg.Startup.PollInterval.Std()
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	timeout := cfg.Startup.Timeout.Std()
	if timeout <= 0 {
		timeout = config.DefaultStartTimeout
	}

	err := WaitForPort(ctx, net.JoinHostPort(LoopbackHost, strconv.Itoa(inst.port)), interval, timeout, inst.done, s.opts.Dial)
	switch {
	case err == nil:
		s.mu.Lock()
		if s.instance == inst {
			s.state = StateRunning
		}
		s.mu.Unlock()
		notify.Infof(s.opts.Notifier, "Drizzle Gateway running on port %d", inst.port)
		if s.opts.OnReady != nil {
			s.opts.OnReady()
		}
		return nil

	case errors.Is(err, ErrExitedEarly):
		notify.Errorf(s.opts.Notifier, "Drizzle Gateway exited before it became ready.")
		return err

	default:
		if errors.Is(err, ErrPortTimeout) {
			notify.Errorf(s.opts.Notifier, "Timed out waiting for Gateway.")
		} else {
			notify.Errorf(s.opts.Notifier, "Gateway startup aborted: %v", err)
		}
		s.forceStop(inst)
		return err
	}
}

// forceStop terminates inst and kills its process group if it is still alive
// after the grace period. It returns once the exit has been handled.
func (s *Supervisor) forceStop(inst *instance) {
	pid := inst.cmd.Process.Pid
	if err := terminate(inst.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logging.Error(subsystem, err, "Failed to terminate gateway (PID: %d)", pid)
	}

	grace := time.NewTimer(s.opts.KillGrace)
	defer grace.Stop()
	select {
	case <-inst.done:
		return
	case <-grace.C:
	}

	logging.Warn(subsystem, "Gateway (PID: %d) ignored termination, killing it", pid)
	if err := kill(inst.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logging.Error(subsystem, err, "Failed to kill gateway (PID: %d)", pid)
	}
	<-inst.done
}

// WaitForPort dials addr every interval until it connects, timeout elapses,
// exited is closed, or ctx is done.
func WaitForPort(ctx context.Context, addr string, interval, timeout time.Duration, exited <-chan struct{}, dial DialFunc) error {
	if dial == nil {
		dial = defaultDial
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-exited:
			return ErrExitedEarly
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w on %s after %s", ErrPortTimeout, addr, timeout)
		case <-ticker.C:
			dialCtx, cancel := context.WithTimeout(ctx, interval)
			err := dial(dialCtx, addr)
			cancel()
			if err == nil {
				return nil
			}
		}
	}
}

// Stop asks the running gateway to terminate. The exit handler performs the
// state transition, so calling Stop repeatedly is harmless.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	inst := s.instance
	s.mu.Unlock()

	if inst == nil {
		return nil
	}
	logging.Info(subsystem, "Stopping gateway (PID: %d)", inst.cmd.Process.Pid)
	if err := terminate(inst.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate gateway: %w", err)
	}
	return nil
}

// Shutdown stops the gateway and waits for it to exit. If ctx expires first
// the process is killed.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	inst := s.instance
	s.mu.Unlock()
	if inst == nil {
		return nil
	}

	if err := s.Stop(); err != nil {
		logging.Warn(subsystem, "Graceful stop failed: %v", err)
	}
	select {
	case <-inst.done:
		return nil
	case <-ctx.Done():
		logging.Warn(subsystem, "Gateway did not exit in time, killing PID %d", inst.cmd.Process.Pid)
		if err := kill(inst.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logging.Error(subsystem, err, "Failed to kill gateway (PID: %d)", inst.cmd.Process.Pid)
		}
		<-inst.done
		return ctx.Err()
	}
}

// HasProcess reports whether a gateway process handle exists.
func (s *Supervisor) HasProcess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance != nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the supervised process.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.state}
	if s.instance != nil {
		st.RunID = s.instance.id
		st.PID = s.instance.cmd.Process.Pid
		st.Port = s.instance.port
		st.StartedAt = s.instance.startedAt
	}
	return st
}

// Done returns a channel closed when the current gateway exits, or nil if none runs.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instance == nil {
		return nil
	}
	return s.instance.done
}

func (s *Supervisor) fireRunningChange(running bool) {
	if s.opts.OnRunningChange != nil {
		s.opts.OnRunningChange(running)
	}
}

func describeExit(state *os.ProcessState, waitErr error) string {
	if state == nil {
		return fmt.Sprintf("error: %v", waitErr)
	}
	if code := state.ExitCode(); code >= 0 {
		return fmt.Sprintf("code %d", code)
	}
	return state.String()
}

func defaultSpawn(path string, env []string) *exec.Cmd {
	cmd := exec.Command(path)
	cmd.Env = env
	return cmd
}

func defaultDial(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func logOutput(stream Stream, line string) {
	if stream == StreamStderr {
		logging.Info(outputSubsystem, "%s%s", stderrLinePrefix, line)
		return
	}
	logging.Info(outputSubsystem, "%s", line)
}
