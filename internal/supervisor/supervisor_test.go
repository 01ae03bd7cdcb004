//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"gatewayctl/internal/config"
	"gatewayctl/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is re-executed as the gateway
// binary by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("HELPER_MODE") {
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		fmt.Println("ignoring SIGTERM")
		time.Sleep(30 * time.Second)
		os.Exit(1)
	case "fork":
		// The grandchild inherits stdout and outlives its parent.
		child := exec.Command("sleep", "30")
		child.Stdout = os.Stdout
		if err := child.Start(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(3)
		}
		fmt.Printf("grandchild %d\n", child.Process.Pid)
		os.Exit(5)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)

	fmt.Println("gateway booting")
	fmt.Fprintln(os.Stderr, "diagnostic line")

	if os.Getenv("HELPER_MODE") == "listen" {
		ln, err := net.Listen("tcp", net.JoinHostPort(os.Getenv("HOST"), os.Getenv("PORT")))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(3)
		}
		defer ln.Close()
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				conn.Close()
			}
		}()
	}
	if os.Getenv("HELPER_MODE") == "exit" {
		os.Exit(7)
	}

	select {
	case <-sigs:
		os.Exit(0)
	case <-time.After(30 * time.Second):
		os.Exit(1)
	}
}

type spawnRecorder struct {
	mode  string
	calls int32
	mu    sync.Mutex
	env   []string
}

func (r *spawnRecorder) spawn(path string, env []string) *exec.Cmd {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.env = env
	r.mu.Unlock()

	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
	cmd.Env = append(env, "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+r.mode)
	return cmd
}

func (r *spawnRecorder) lookup(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	val := ""
	found := false
	for _, kv := range r.env {
		if strings.HasPrefix(kv, key+"=") {
			val = strings.TrimPrefix(kv, key+"=")
			found = true
		}
	}
	return val, found
}

type lineCollector struct {
	mu    sync.Mutex
	lines map[Stream][]string
}

func (c *lineCollector) add(stream Stream, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		c.lines = map[Stream][]string{}
	}
	c.lines[stream] = append(c.lines[stream], line)
}

func (c *lineCollector) get(stream Stream) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines[stream]...)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(port int) config.GatewayConfig {
	cfg := config.GetDefaultConfig()
	cfg.Port = port
	cfg.DatabaseURL = "postgres://localhost/test"
	cfg.Startup.PollInterval = config.Duration(20 * time.Millisecond)
	cfg.Startup.Timeout = config.Duration(5 * time.Second)
	return cfg
}

func waitStopped(t *testing.T, s *Supervisor) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == StateStopped && !s.HasProcess() },
		5*time.Second, 10*time.Millisecond)
}

func TestBuildEnv(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.DatabaseURL = "postgres://db"

	env := BuildEnv([]string{"PATH=/usr/bin"}, cfg)
	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"DATABASE_URL=postgres://db",
		"PORT=4983",
		"HOST=127.0.0.1",
	}, env)

	cfg.Password = "hunter2"
	env = BuildEnv(nil, cfg)
	assert.Contains(t, env, "MASTERPASS=hunter2")
}

func TestStart_ReadyAndStop(t *testing.T) {
	port := freePort(t)
	rec := &spawnRecorder{mode: "listen"}
	notes := &notify.Recorder{}
	lines := &lineCollector{}
	var transitions []bool
	var tmu sync.Mutex
	var ready int32

	s := New(Options{
		Notifier: notes,
		Output:   lines.add,
		Spawn:    rec.spawn,
		OnRunningChange: func(running bool) {
			tmu.Lock()
			transitions = append(transitions, running)
			tmu.Unlock()
		},
		OnReady: func() { atomic.AddInt32(&ready, 1) },
	})

	require.NoError(t, s.Start(context.Background(), "/opt/drizzle-gateway", testConfig(port)))
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&ready))
	assert.Equal(t, 1, notes.Count(notify.LevelInfo, fmt.Sprintf("Drizzle Gateway running on port %d", port)))
	assert.Equal(t, []string{"Starting Drizzle Gateway..."}, notes.ProgressTitles())

	status := s.Status()
	assert.NotEmpty(t, status.RunID)
	assert.NotZero(t, status.PID)
	assert.Equal(t, port, status.Port)

	host, _ := rec.lookup("HOST")
	assert.Equal(t, "127.0.0.1", host)
	db, _ := rec.lookup("DATABASE_URL")
	assert.Equal(t, "postgres://localhost/test", db)
	_, hasPass := rec.lookup("MASTERPASS")
	assert.False(t, hasPass)

	require.NoError(t, s.Stop())
	waitStopped(t, s)
	require.NoError(t, s.Stop(), "stop without a process is a no-op")

	assert.Contains(t, lines.get(StreamStdout), "gateway booting")
	assert.Contains(t, lines.get(StreamStderr), "diagnostic line")
	assert.Contains(t, lines.get(StreamStdout), "Drizzle Gateway exited with code 0")
	assert.Equal(t, 1, notes.Count(notify.LevelInfo, "Drizzle Gateway stopped."))

	tmu.Lock()
	assert.Equal(t, []bool{true, false}, transitions)
	tmu.Unlock()
}

func TestStart_RejectsSecondStart(t *testing.T) {
	rec := &spawnRecorder{mode: "listen"}
	notes := &notify.Recorder{}
	s := New(Options{Notifier: notes, Spawn: rec.spawn, Output: func(Stream, string) {}})

	cfg := testConfig(freePort(t))
	require.NoError(t, s.Start(context.Background(), "gw", cfg))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	err := s.Start(context.Background(), "gw", cfg)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	assert.Equal(t, int32(1), atomic.LoadInt32(&rec.calls))
	assert.Equal(t, 1, notes.Count(notify.LevelInfo, "Drizzle Gateway is already running."))
}

func TestStart_PortTimeoutTerminates(t *testing.T) {
	rec := &spawnRecorder{mode: "sleep"}
	notes := &notify.Recorder{}
	var mu sync.Mutex
	var transitions []bool
	s := New(Options{
		Notifier: notes,
		Spawn:    rec.spawn,
		Output:   func(Stream, string) {},
		OnRunningChange: func(running bool) {
			mu.Lock()
			transitions = append(transitions, running)
			mu.Unlock()
		},
	})

	cfg := testConfig(freePort(t))
	cfg.Startup.Timeout = config.Duration(200 * time.Millisecond)

	err := s.Start(context.Background(), "gw", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortTimeout))
	assert.Equal(t, 1, notes.Count(notify.LevelError, "Timed out waiting for Gateway."))

	waitStopped(t, s)
	mu.Lock()
	assert.Equal(t, []bool{true, false}, transitions)
	mu.Unlock()
}

func TestStart_EarlyExit(t *testing.T) {
	rec := &spawnRecorder{mode: "exit"}
	lines := &lineCollector{}
	s := New(Options{Notifier: &notify.Recorder{}, Spawn: rec.spawn, Output: lines.add})

	err := s.Start(context.Background(), "gw", testConfig(freePort(t)))
	assert.True(t, errors.Is(err, ErrExitedEarly))
	waitStopped(t, s)
	assert.Contains(t, lines.get(StreamStdout), "Drizzle Gateway exited with code 7")
}

func TestStart_SpawnFailure(t *testing.T) {
	notes := &notify.Recorder{}
	var changes int32
	s := New(Options{
		Notifier:        notes,
		OnRunningChange: func(bool) { atomic.AddInt32(&changes, 1) },
	})

	err := s.Start(context.Background(), "/nonexistent/drizzle-gateway", testConfig(freePort(t)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpawn))
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, int32(0), atomic.LoadInt32(&changes))

	msgs := notes.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Failed to start gateway:"))
}

func TestWaitForPort(t *testing.T) {
	t.Run("connects after retries", func(t *testing.T) {
		var attempts int32
		dial := func(ctx context.Context, addr string) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("refused")
			}
			return nil
		}
		err := WaitForPort(context.Background(), "127.0.0.1:1", 5*time.Millisecond, time.Second, nil, dial)
		assert.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	})

	t.Run("times out", func(t *testing.T) {
		dial := func(ctx context.Context, addr string) error { return errors.New("refused") }
		err := WaitForPort(context.Background(), "127.0.0.1:1", 5*time.Millisecond, 50*time.Millisecond, nil, dial)
		assert.True(t, errors.Is(err, ErrPortTimeout))
	})

	t.Run("process exit aborts", func(t *testing.T) {
		exited := make(chan struct{})
		close(exited)
		dial := func(ctx context.Context, addr string) error { return errors.New("refused") }
		err := WaitForPort(context.Background(), "127.0.0.1:1", 5*time.Millisecond, time.Second, exited, dial)
		assert.True(t, errors.Is(err, ErrExitedEarly))
	})

	t.Run("context cancel aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dial := func(ctx context.Context, addr string) error { return errors.New("refused") }
		err := WaitForPort(ctx, "127.0.0.1:1", 5*time.Millisecond, time.Second, nil, dial)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestStart_PortTimeoutKillsStubbornGateway(t *testing.T) {
	rec := &spawnRecorder{mode: "stubborn"}
	lines := &lineCollector{}
	s := New(Options{
		Notifier:  &notify.Recorder{},
		Spawn:     rec.spawn,
		Output:    lines.add,
		KillGrace: 200 * time.Millisecond,
		Dial:      func(context.Context, string) error { return errors.New("connection refused") },
	})

	cfg := testConfig(freePort(t))
	cfg.Startup.Timeout = config.Duration(time.Second)

	err := s.Start(context.Background(), "gw", cfg)
	assert.True(t, errors.Is(err, ErrPortTimeout))

	// Start only returns once the exit has been handled.
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, s.HasProcess())
	assert.Contains(t, lines.get(StreamStdout), "Drizzle Gateway exited with signal: killed")

	err = s.Start(context.Background(), "gw", cfg)
	assert.False(t, errors.Is(err, ErrAlreadyRunning), "a killed gateway must not block the next start")
}

func TestShutdown_KillsGatewayIgnoringTerm(t *testing.T) {
	rec := &spawnRecorder{mode: "stubborn"}
	s := New(Options{
		Notifier: &notify.Recorder{},
		Spawn:    rec.spawn,
		Output:   func(Stream, string) {},
		Dial:     func(context.Context, string) error { return nil },
	})
	require.NoError(t, s.Start(context.Background(), "gw", testConfig(freePort(t))))
	// Let the helper install its signal disposition.
	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, s.HasProcess())
}

func TestStart_ExitObservedWhileGrandchildHoldsOutput(t *testing.T) {
	rec := &spawnRecorder{mode: "fork"}
	lines := &lineCollector{}
	s := New(Options{Notifier: &notify.Recorder{}, Spawn: rec.spawn, Output: lines.add})

	err := s.Start(context.Background(), "gw", testConfig(freePort(t)))
	assert.True(t, errors.Is(err, ErrExitedEarly))
	waitStopped(t, s)
	assert.Contains(t, lines.get(StreamStdout), "Drizzle Gateway exited with code 5")

	for _, line := range lines.get(StreamStdout) {
		var pid int
		if _, scanErr := fmt.Sscanf(line, "grandchild %d", &pid); scanErr == nil && pid > 0 {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	}
}
