//go:build !windows

package supervisor

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr puts the gateway in its own process group so terminal signals
// aimed at gatewayctl do not reach it directly.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the gateway's process group.
func terminate(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return p.Signal(syscall.SIGTERM)
		}
		return err
	}
	return nil
}

// kill sends SIGKILL to the gateway's process group.
func kill(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return p.Kill()
		}
		return err
	}
	return nil
}
