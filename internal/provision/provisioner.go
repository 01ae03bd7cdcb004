package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gatewayctl/internal/notify"
	"gatewayctl/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
)

const subsystem = "Provision"

var (
	// ErrDownload wraps non-200 responses and transport failures while fetching the binary.
	ErrDownload = errors.New("download failed")
	// ErrFileInUse is returned when the existing binary cannot be removed.
	ErrFileInUse = errors.New("cannot delete existing binary")
)

const executableMode os.FileMode = 0o755

// URLResolver yields the artifact URL for this machine.
type URLResolver interface {
	ResolveDownloadURL(ctx context.Context) (string, error)
}

// Provisioner keeps a local copy of the gateway binary in the storage directory.
// Calls are serialized; only one download targets the binary path at a time.
type Provisioner struct {
	storageDir string
	goos       string
	resolver   URLResolver
	client     *retryablehttp.Client
	notifier   notify.Notifier

	mu sync.Mutex
}

// New creates a provisioner storing the binary under storageDir.
func New(storageDir string, resolver URLResolver, client *retryablehttp.Client, notifier notify.Notifier) *Provisioner {
	return &Provisioner{
		storageDir: storageDir,
		goos:       runtime.GOOS,
		resolver:   resolver,
		client:     client,
		notifier:   notifier,
	}
}

// BinaryName is the file name of the gateway executable on goos.
func BinaryName(goos string) string {
	if goos == "windows" {
		return "drizzle-gateway.exe"
	}
	return "drizzle-gateway"
}

// Path returns the deterministic location of the managed binary.
func (p *Provisioner) Path() string {
	return filepath.Join(p.storageDir, BinaryName(p.goos))
}

// Exists reports whether the managed binary is present.
func (p *Provisioner) Exists() bool {
	_, err := os.Stat(p.Path())
	return err == nil
}

// EnsureBinary returns the binary path, downloading it first if it is missing.
// An existing file is returned as-is; staleness is only fixed by Redownload.
func (p *Provisioner) EnsureBinary(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.Path()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(p.storageDir, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory %s: %w", p.storageDir, err)
	}

	logging.Info(subsystem, "Gateway binary not found at %s, downloading", path)
	if err := p.install(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Redownload replaces the binary with the latest release. The outcome is
// always reported through the notifier; the returned error mirrors it.
func (p *Provisioner) Redownload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.Path()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Error(subsystem, err, "Failed to delete %s", path)
		notify.Errorf(p.notifier, "Cannot delete existing binary. Is it currently running?")
		return fmt.Errorf("%w %s: %v", ErrFileInUse, path, err)
	}

	if err := os.MkdirAll(p.storageDir, 0o755); err != nil {
		notify.Errorf(p.notifier, "Update failed: %v", err)
		return fmt.Errorf("create storage directory %s: %w", p.storageDir, err)
	}

	// Once started the update runs to completion.
	installCtx := context.WithoutCancel(ctx)
	err := p.notifier.Progress("Updating Drizzle Gateway...", func() error {
		return p.install(installCtx, path)
	})
	if err != nil {
		notify.Errorf(p.notifier, "Update failed: %v", err)
		return err
	}

	notify.Infof(p.notifier, "Drizzle Gateway updated successfully!")
	return nil
}

// install resolves the URL, downloads to path and marks it executable.
func (p *Provisioner) install(ctx context.Context, path string) error {
	url, err := p.resolver.ResolveDownloadURL(ctx)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if p.goos != "windows" {
		mode = executableMode
	}
	if err := Download(ctx, p.client, url, path, mode); err != nil {
		return err
	}

	logging.Info(subsystem, "Installed gateway binary at %s", path)
	return nil
}

// Download streams url into dest. The payload is written to a temporary file
// in the same directory and renamed into place only after it is complete, so
// a failed transfer never leaves a partial file at dest.
func Download(ctx context.Context, client *retryablehttp.Client, url, dest string, mode os.FileMode) (err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	logging.Info(subsystem, "Downloading %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: failed to download (Status %d)", ErrDownload, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*.download")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("move binary into place: %w", err)
	}

	logging.Debug(subsystem, "Wrote %d bytes to %s", written, dest)
	return nil
}
