//go:build !windows

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"gatewayctl/internal/config"
	"gatewayctl/internal/notify"
	"gatewayctl/internal/panel"
	"gatewayctl/internal/supervisor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess stands in for the gateway binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	fmt.Println("helper up")
	select {
	case <-sigs:
		os.Exit(0)
	case <-time.After(30 * time.Second):
		os.Exit(1)
	}
}

type fakeSpawner struct {
	calls int32
	mu    sync.Mutex
	path  string
	env   []string
}

func (f *fakeSpawner) spawn(path string, env []string) *exec.Cmd {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.path = path
	f.env = append([]string(nil), env...)
	f.mu.Unlock()

	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
	cmd.Env = append(env, "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func (f *fakeSpawner) spawnedPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *fakeSpawner) spawnedEnv() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.env...)
}

type fakeResolver struct {
	url   string
	calls int32
}

func (f *fakeResolver) ResolveDownloadURL(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.url, nil
}

type fakeOpener struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeOpener) Open(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func (f *fakeOpener) opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type outputLines struct {
	mu    sync.Mutex
	lines []string
}

func (o *outputLines) add(_ supervisor.Stream, line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, line)
}

func (o *outputLines) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

type harness struct {
	app      *App
	spawner  *fakeSpawner
	resolver *fakeResolver
	notes    *notify.Recorder
	opener   *fakeOpener
	output   *outputLines
	hits     *int32
}

func newHarness(t *testing.T, mutate func(cfg *config.GatewayConfig, opts *Options)) *harness {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	t.Cleanup(srv.Close)

	cfg := config.GetDefaultConfig()
	cfg.StorageDir = filepath.Join(t.TempDir(), "storage")
	cfg.DatabaseURL = "postgres://localhost/app"
	cfg.Startup.PollInterval = config.Duration(10 * time.Millisecond)
	cfg.Startup.Timeout = config.Duration(3 * time.Second)

	h := &harness{
		spawner:  &fakeSpawner{},
		resolver: &fakeResolver{url: srv.URL + "/drizzle-gateway-1.0.0-linux-x64"},
		notes:    &notify.Recorder{},
		opener:   &fakeOpener{},
		output:   &outputLines{},
		hits:     &hits,
	}
	opts := Options{
		Notifier: h.notes,
		Opener:   h.opener,
		Resolver: h.resolver,
		Spawn:    h.spawner.spawn,
		Dial:     func(context.Context, string) error { return nil },
		Output:   h.output.add,
	}
	if mutate != nil {
		mutate(&cfg, &opts)
	}
	opts.Config = cfg
	h.app = New(opts)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.app.Deactivate(ctx)
	})
	return h
}

func envValue(env []string, key string) (string, bool) {
	val, found := "", false
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			val, found = strings.TrimPrefix(kv, key+"="), true
		}
	}
	return val, found
}

func waitForStopped(t *testing.T, a *App) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !a.Supervisor.HasProcess() && !a.Panel.Running()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStart_DownloadsAndSpawnsWithEnvironment(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.app.Start(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(h.hits))
	assert.Equal(t, h.app.Provisioner.Path(), h.spawner.spawnedPath())

	env := h.spawner.spawnedEnv()
	port, _ := envValue(env, "PORT")
	host, _ := envValue(env, "HOST")
	db, _ := envValue(env, "DATABASE_URL")
	assert.Equal(t, "4983", port)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, "postgres://localhost/app", db)

	assert.True(t, h.app.Panel.Running())
	assert.Equal(t, []string{panel.CommandStop, panel.CommandOpen}, []string{
		h.app.Panel.Items()[0].CommandID, h.app.Panel.Items()[1].CommandID,
	})
	assert.Equal(t, 1, h.notes.Count(notify.LevelInfo, "Drizzle Gateway running on port 4983"))
	assert.Equal(t, []string{"http://127.0.0.1:4983"}, h.opener.opened(), "auto-open after ready")
}

func TestStart_TwiceSpawnsOnce(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.app.Start(context.Background()))
	err := h.app.Start(context.Background())

	assert.True(t, errors.Is(err, supervisor.ErrAlreadyRunning))
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.spawner.calls))
	assert.Equal(t, 1, h.notes.Count(notify.LevelInfo, "Drizzle Gateway is already running."))
}

func TestStart_ConcurrentCallsSpawnOnce(t *testing.T) {
	h := newHarness(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.app.Start(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&h.spawner.calls))
	assert.Equal(t, 3, h.notes.Count(notify.LevelInfo, "Drizzle Gateway is already running."))
}

func TestStart_BinaryPathOverride(t *testing.T) {
	t.Run("existing file is used", func(t *testing.T) {
		custom := filepath.Join(t.TempDir(), "my-gateway")
		require.NoError(t, os.WriteFile(custom, []byte("bin"), 0o755))

		h := newHarness(t, func(cfg *config.GatewayConfig, _ *Options) { cfg.BinaryPath = custom })
		require.NoError(t, h.app.Start(context.Background()))

		assert.Equal(t, custom, h.spawner.spawnedPath())
		assert.Equal(t, int32(0), atomic.LoadInt32(&h.resolver.calls))
		assert.Equal(t, int32(0), atomic.LoadInt32(h.hits))
	})

	t.Run("missing file falls back to managed binary", func(t *testing.T) {
		h := newHarness(t, func(cfg *config.GatewayConfig, _ *Options) {
			cfg.BinaryPath = filepath.Join(t.TempDir(), "does-not-exist")
		})
		require.NoError(t, h.app.Start(context.Background()))

		assert.Equal(t, h.app.Provisioner.Path(), h.spawner.spawnedPath())
		assert.Equal(t, int32(1), atomic.LoadInt32(h.hits))
	})
}

func TestStart_PortTimeoutTerminatesAndResetsPanel(t *testing.T) {
	h := newHarness(t, func(cfg *config.GatewayConfig, opts *Options) {
		cfg.Startup.Timeout = config.Duration(300 * time.Millisecond)
		opts.Dial = func(context.Context, string) error { return errors.New("connection refused") }
	})

	err := h.app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, supervisor.ErrPortTimeout))
	assert.Equal(t, 1, h.notes.Count(notify.LevelError, "Timed out waiting for Gateway."))

	waitForStopped(t, h.app)
	assert.Equal(t, panel.ItemsFor(false), h.app.Panel.Items())
	assert.NotContains(t, h.output.all(), "Drizzle Gateway exited with code 1", "helper must be terminated, not time out on its own")
	assert.Empty(t, h.opener.opened())
}

func TestStop(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.app.Stop(), "stop without a gateway is a no-op")

	require.NoError(t, h.app.Start(context.Background()))
	require.NoError(t, h.app.Stop())

	waitForStopped(t, h.app)
	var exitLines []string
	for _, line := range h.output.all() {
		if strings.HasPrefix(line, "Drizzle Gateway exited with") {
			exitLines = append(exitLines, line)
		}
	}
	assert.Len(t, exitLines, 1)
	require.Eventually(t, func() bool {
		return h.notes.Count(notify.LevelInfo, "Drizzle Gateway stopped.") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateBinary(t *testing.T) {
	t.Run("rejected while running", func(t *testing.T) {
		var asked int32
		h := newHarness(t, func(_ *config.GatewayConfig, opts *Options) {
			opts.Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
				atomic.AddInt32(&asked, 1)
				return true, nil
			})
		})
		require.NoError(t, h.app.Start(context.Background()))

		err := h.app.UpdateBinary(context.Background())
		assert.True(t, errors.Is(err, ErrGatewayRunning))
		assert.Equal(t, 1, h.notes.Count(notify.LevelWarn, "Please stop the Gateway before updating."))
		assert.Equal(t, int32(0), atomic.LoadInt32(&asked))
	})

	t.Run("declined confirmation keeps binary", func(t *testing.T) {
		var question string
		h := newHarness(t, func(_ *config.GatewayConfig, opts *Options) {
			opts.Confirmer = ConfirmFunc(func(_ context.Context, msg string) (bool, error) {
				question = msg
				return false, nil
			})
		})
		require.NoError(t, os.MkdirAll(filepath.Dir(h.app.Provisioner.Path()), 0o755))
		require.NoError(t, os.WriteFile(h.app.Provisioner.Path(), []byte("old"), 0o755))

		require.NoError(t, h.app.UpdateBinary(context.Background()))
		assert.Equal(t, UpdateConfirmation, question)

		data, err := os.ReadFile(h.app.Provisioner.Path())
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
		assert.Equal(t, int32(0), atomic.LoadInt32(h.hits))
	})

	t.Run("confirmed replaces binary", func(t *testing.T) {
		h := newHarness(t, func(_ *config.GatewayConfig, opts *Options) {
			opts.Confirmer = AlwaysConfirm(true)
		})
		require.NoError(t, h.app.UpdateBinary(context.Background()))
		assert.True(t, h.app.Provisioner.Exists())
		assert.Equal(t, 1, h.notes.Count(notify.LevelInfo, "Drizzle Gateway updated successfully!"))
	})
}

func TestExecute(t *testing.T) {
	h := newHarness(t, func(cfg *config.GatewayConfig, _ *Options) {
		autoOpen := false
		cfg.Startup.AutoOpen = &autoOpen
		cfg.Port = 5111
	})

	require.NoError(t, h.app.Execute(context.Background(), panel.CommandOpen))
	assert.Equal(t, []string{"http://127.0.0.1:5111"}, h.opener.opened())

	require.NoError(t, h.app.Execute(context.Background(), panel.CommandStart))
	assert.Len(t, h.opener.opened(), 1, "auto-open disabled")

	require.NoError(t, h.app.Execute(context.Background(), panel.CommandStop))
	waitForStopped(t, h.app)

	err := h.app.Execute(context.Background(), "drizzleGateway.bogus")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestStart_ReloadsConfig(t *testing.T) {
	var reloads int32
	h := newHarness(t, func(cfg *config.GatewayConfig, opts *Options) {
		base := *cfg
		opts.Reload = func() (config.GatewayConfig, error) {
			atomic.AddInt32(&reloads, 1)
			next := base
			next.Port = 6222
			return next, nil
		}
	})

	require.NoError(t, h.app.Start(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads))
	port, _ := envValue(h.spawner.spawnedEnv(), "PORT")
	assert.Equal(t, "6222", port)
	assert.Equal(t, "http://127.0.0.1:6222", h.app.StudioURL())
}

func TestStatus(t *testing.T) {
	h := newHarness(t, nil)

	st := h.app.Status()
	assert.Equal(t, "Stopped", st.State)
	assert.Equal(t, 4983, st.Port)
	assert.Equal(t, "http://127.0.0.1:4983", st.URL)
	assert.False(t, st.BinaryInstalled)
	assert.Empty(t, st.RunID)

	require.NoError(t, h.app.Start(context.Background()))
	st = h.app.Status()
	assert.Equal(t, "Running", st.State)
	assert.NotEmpty(t, st.RunID)
	assert.NotZero(t, st.PID)
	assert.True(t, st.BinaryInstalled)
	assert.Equal(t, h.app.Provisioner.Path(), st.BinaryPath)
}

func TestUpdateBinary_RejectedWhileFirstStartDownloads(t *testing.T) {
	requested := make(chan struct{})
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(requested)
		<-release
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	t.Cleanup(slow.Close)

	var asked int32
	h := newHarness(t, func(_ *config.GatewayConfig, opts *Options) {
		opts.Resolver = &fakeResolver{url: slow.URL + "/drizzle-gateway-1.0.0-linux-x64"}
		opts.Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
			atomic.AddInt32(&asked, 1)
			return true, nil
		})
	})

	startErr := make(chan error, 1)
	go func() { startErr <- h.app.Start(context.Background()) }()

	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		t.Fatal("start never requested the binary")
	}

	err := h.app.UpdateBinary(context.Background())
	assert.True(t, errors.Is(err, ErrGatewayRunning))
	assert.Equal(t, 1, h.notes.Count(notify.LevelWarn, "Please stop the Gateway before updating."))
	assert.Equal(t, int32(0), atomic.LoadInt32(&asked))

	err = h.app.Start(context.Background())
	assert.True(t, errors.Is(err, supervisor.ErrAlreadyRunning))

	close(release)
	require.NoError(t, <-startErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.spawner.calls))
	assert.True(t, h.app.Provisioner.Exists())
}
