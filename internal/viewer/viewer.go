// Package viewer opens URLs in the user's browser.
package viewer

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"gatewayctl/pkg/logging"
)

// ErrUnsupportedRuntime is returned when no opener is known for the OS.
var ErrUnsupportedRuntime = errors.New("unsupported runtime")

// Opener launches the configured or platform default browser command.
type Opener struct {
	goos     string
	override []string
	// run starts the command without waiting for it.
	run func(name string, args ...string) error
}

// New creates an opener. A non-empty override is used as the command prefix
// and the URL is appended as the last argument.
func New(override []string) *Opener {
	return &Opener{
		goos:     runtime.GOOS,
		override: override,
		run:      startCommand,
	}
}

// Command returns the argv used to open url.
func (o *Opener) Command(url string) ([]string, error) {
	if len(o.override) > 0 {
		return append(append([]string(nil), o.override...), url), nil
	}
	switch o.goos {
	case "darwin":
		return []string{"open", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRuntime, o.goos)
	}
}

// Open launches the browser on url.
func (o *Opener) Open(url string) error {
	argv, err := o.Command(url)
	if err != nil {
		return err
	}
	logging.Debug("Viewer", "Opening %s with %v", url, argv)
	if err := o.run(argv[0], argv[1:]...); err != nil {
		return fmt.Errorf("unable to open browser window for runtime %s: %w", o.goos, err)
	}
	return nil
}

func startCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the opener so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
